package installments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
)

// Repository provides PostgreSQL backed persistence for installments.
// Amounts are bigint minor units; fee percentages are basis points.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrInstallmentNotFound indicates a missing installment.
var ErrInstallmentNotFound = fmt.Errorf("installments: %w", shared.ErrNotFound)

func toMinor(d decimal.Decimal) int64 { return shared.Round2(d).Shift(2).IntPart() }
func fromMinor(n int64) decimal.Decimal { return decimal.New(n, -2) }

const columns = `id, project_id, installment_number, amount, due_date, status,
	paid_amount, paid_date, admin_fee_bp, admin_fee_collected, created_at`

func scanInstallment(row pgx.Row) (*Installment, error) {
	var (
		ins        Installment
		minor      int64
		paidMinor  *int64
		feeBasisPt *int64
	)
	err := row.Scan(&ins.ID, &ins.ProjectID, &ins.Number, &minor, &ins.DueDate, &ins.Status,
		&paidMinor, &ins.PaidDate, &feeBasisPt, &ins.AdminFeeCollected, &ins.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	ins.Amount = fromMinor(minor)
	if paidMinor != nil {
		paid := fromMinor(*paidMinor)
		ins.PaidAmount = &paid
	}
	if feeBasisPt != nil {
		fee := decimal.New(*feeBasisPt, -2)
		ins.AdminFeePercentage = &fee
	}
	return &ins, nil
}

// InsertScheduleTx bulk-inserts a generated schedule for a project
// inside the caller's transaction. The optional admin fee percentage is
// stamped on every installment.
func (r *Repository) InsertScheduleTx(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, entries []ScheduleEntry, adminFeePct *decimal.Decimal) error {
	var feeBasisPt *int64
	if adminFeePct != nil {
		bp := shared.Round2(*adminFeePct).Shift(2).IntPart()
		feeBasisPt = &bp
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO installments (
				id, project_id, installment_number, amount, due_date, status,
				admin_fee_bp, admin_fee_collected, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,false,NOW())`,
			uuid.New(), projectID, e.Number, toMinor(e.Amount), e.DueDate, StatusPending, feeBasisPt,
		); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves one installment by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Installment, error) {
	return scanInstallment(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM installments WHERE id=$1`, id))
}

// GetForUpdateTx loads an installment and locks its row; concurrent
// payments against the same installment serialize here.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Installment, error) {
	return scanInstallment(tx.QueryRow(ctx, `SELECT `+columns+` FROM installments WHERE id=$1 FOR UPDATE`, id))
}

// MarkPaidTx flips an installment to paid inside the caller's transaction.
func (r *Repository) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAmount decimal.Decimal, paidDate time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE installments SET status=$2, paid_amount=$3, paid_date=$4
		WHERE id=$1 AND status <> $2`,
		id, StatusPaid, toMinor(paidAmount), paidDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("installments: already paid: %w", shared.ErrConflict)
	}
	return nil
}

// MarkFeeCollectedTx records a successful fee liquidation.
func (r *Repository) MarkFeeCollectedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE installments SET admin_fee_collected=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInstallmentNotFound
	}
	return nil
}

// ListByProject returns a project's installments in schedule order.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Installment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM installments
		WHERE project_id=$1 ORDER BY installment_number`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Installment
	for rows.Next() {
		ins, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ins)
	}
	return out, rows.Err()
}

// MarkOverdue flips pending installments past their due date to overdue
// and returns how many rows changed. Run nightly by the worker.
func (r *Repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE installments SET status=$1
		WHERE status=$2 AND due_date < $3`,
		StatusOverdue, StatusPending, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
