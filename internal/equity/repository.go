package equity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/platform/db"
	"github.com/obralink/obralink/internal/shared"
)

// Repository provides PostgreSQL backed persistence for equity shares.
// Percentages are stored as basis points, cash amounts as minor units.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// ErrShareNotFound indicates a missing project investor row.
var ErrShareNotFound = fmt.Errorf("equity: share %w", shared.ErrNotFound)

func toBasisPoints(d decimal.Decimal) int64 { return shared.Round2(d).Shift(2).IntPart() }
func fromBasisPoints(n int64) decimal.Decimal { return decimal.New(n, -2) }

func toMinor(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	n := shared.Round2(*d).Shift(2).IntPart()
	return &n
}

func fromMinor(n *int64) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := decimal.New(*n, -2)
	return &d
}

const columns = `id, project_id, investor_id, investment_type, amount, estimated_value,
	percentage_bp, status, note, created_at, updated_at`

func scanShare(row pgx.Row) (*ProjectInvestor, error) {
	var (
		share         ProjectInvestor
		amount, value *int64
		basisPoints   int64
	)
	err := row.Scan(&share.ID, &share.ProjectID, &share.InvestorID, &share.InvestmentType,
		&amount, &value, &basisPoints, &share.Status, &share.Note, &share.CreatedAt, &share.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	share.Amount = fromMinor(amount)
	share.EstimatedValue = fromMinor(value)
	share.PercentageShare = fromBasisPoints(basisPoints)
	return &share, nil
}

// WithProjectLock runs fn holding the project's transaction-scoped
// advisory lock, so only one allocation validates at a time per project.
func (r *Repository) WithProjectLock(ctx context.Context, projectID uuid.UUID, fn func(ShareTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := shared.AcquireTxLock(ctx, tx, shared.EquityLockKey(projectID.String())); err != nil {
			return err
		}
		return fn(&shareTx{tx: tx})
	})
}

// Get retrieves one share by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*ProjectInvestor, error) {
	return scanShare(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM project_investors WHERE id=$1`, id))
}

// ListActiveByProject returns a project's active shares.
func (r *Repository) ListActiveByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectInvestor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM project_investors
		WHERE project_id=$1 AND status=$2 ORDER BY created_at`, projectID, ShareActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectInvestor
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *share)
	}
	return out, rows.Err()
}

// SumActiveShares totals a project's active percentages.
func (r *Repository) SumActiveShares(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	var basisPoints int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(percentage_bp), 0) FROM project_investors
		WHERE project_id=$1 AND status=$2`, projectID, ShareActive).Scan(&basisPoints)
	if err != nil {
		return decimal.Zero, err
	}
	return fromBasisPoints(basisPoints), nil
}

// InvestedTotals aggregates cash and estimated in-kind value.
func (r *Repository) InvestedTotals(ctx context.Context, projectID uuid.UUID) (*InvestedTotals, error) {
	var cashARS, cashUSD, estimated int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE investment_type=$3), 0),
			COALESCE(SUM(amount) FILTER (WHERE investment_type=$4), 0),
			COALESCE(SUM(estimated_value), 0)
		FROM project_investors
		WHERE project_id=$1 AND status=$2`,
		projectID, ShareActive, InvestmentCashARS, InvestmentCashUSD).
		Scan(&cashARS, &cashUSD, &estimated)
	if err != nil {
		return nil, err
	}
	return &InvestedTotals{
		CashARS:        decimal.New(cashARS, -2),
		CashUSD:        decimal.New(cashUSD, -2),
		EstimatedValue: decimal.New(estimated, -2),
	}, nil
}

// ListPositions returns an investor's active stakes with co-investor
// names and percentages only.
func (r *Repository) ListPositions(ctx context.Context, investorID uuid.UUID) ([]Position, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pi.project_id, p.name, pi.investment_type, pi.amount, pi.estimated_value, pi.percentage_bp
		FROM project_investors pi
		JOIN projects p ON p.id = pi.project_id
		WHERE pi.investor_id=$1 AND pi.status=$2
		ORDER BY p.name`, investorID, ShareActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var (
			pos           Position
			amount, value *int64
			basisPoints   int64
		)
		if err := rows.Scan(&pos.ProjectID, &pos.ProjectName, &pos.InvestmentType, &amount, &value, &basisPoints); err != nil {
			return nil, err
		}
		pos.Amount = fromMinor(amount)
		pos.EstimatedValue = fromMinor(value)
		pos.PercentageShare = fromBasisPoints(basisPoints)
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range positions {
		coRows, err := r.pool.Query(ctx, `
			SELECT i.name, pi.percentage_bp
			FROM project_investors pi
			JOIN investors i ON i.id = pi.investor_id
			WHERE pi.project_id=$1 AND pi.status=$2 AND pi.investor_id <> $3
			ORDER BY i.name`, positions[i].ProjectID, ShareActive, investorID)
		if err != nil {
			return nil, err
		}
		for coRows.Next() {
			var (
				co          CoInvestorShare
				basisPoints int64
			)
			if err := coRows.Scan(&co.InvestorName, &basisPoints); err != nil {
				coRows.Close()
				return nil, err
			}
			co.PercentageShare = fromBasisPoints(basisPoints)
			positions[i].CoInvestors = append(positions[i].CoInvestors, co)
		}
		if err := coRows.Err(); err != nil {
			coRows.Close()
			return nil, err
		}
		coRows.Close()
	}
	return positions, nil
}

type shareTx struct {
	tx pgx.Tx
}

func (t *shareTx) SumActiveShares(ctx context.Context, projectID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(percentage_bp), 0) FROM project_investors WHERE project_id=$1 AND status=$2`
	args := []any{projectID, ShareActive}
	if exclude != nil {
		query += ` AND id <> $3`
		args = append(args, exclude)
	}
	var basisPoints int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&basisPoints); err != nil {
		return decimal.Zero, err
	}
	return fromBasisPoints(basisPoints), nil
}

func (t *shareTx) Insert(ctx context.Context, in ShareInput) (*ProjectInvestor, error) {
	return scanShare(t.tx.QueryRow(ctx, `
		INSERT INTO project_investors (
			id, project_id, investor_id, investment_type, amount, estimated_value,
			percentage_bp, status, note, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		RETURNING `+columns,
		uuid.New(), in.ProjectID, in.InvestorID, in.InvestmentType,
		toMinor(in.Amount), toMinor(in.EstimatedValue),
		toBasisPoints(in.PercentageShare), ShareActive, in.Note))
}

func (t *shareTx) Get(ctx context.Context, id uuid.UUID) (*ProjectInvestor, error) {
	return scanShare(t.tx.QueryRow(ctx, `SELECT `+columns+` FROM project_investors WHERE id=$1 FOR UPDATE`, id))
}

func (t *shareTx) UpdatePercentage(ctx context.Context, id uuid.UUID, pct decimal.Decimal) (*ProjectInvestor, error) {
	return scanShare(t.tx.QueryRow(ctx, `
		UPDATE project_investors SET percentage_bp=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING `+columns, id, toBasisPoints(pct)))
}

func (t *shareTx) SetStatus(ctx context.Context, id uuid.UUID, status ShareStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE project_investors SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShareNotFound
	}
	return nil
}
