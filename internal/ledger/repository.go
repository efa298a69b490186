package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/shared"
)

// Repository provides PostgreSQL backed persistence for cash boxes and
// the movement journal. Amounts are stored as bigint minor units
// (centavos / cents); the domain layer only ever sees decimals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrBoxNotFound indicates a cash box that was never provisioned. Boxes
// are created at project/firm creation, never lazily.
var ErrBoxNotFound = fmt.Errorf("ledger: cash box %w", shared.ErrNotFound)

func toMinor(d decimal.Decimal) int64 {
	return shared.Round2(d).Shift(2).IntPart()
}

func fromMinor(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

const boxColumns = `id, scope, project_id, balance_ars, balance_usd,
	total_income_ars, total_income_usd, total_expenses_ars, total_expenses_usd, updated_at`

func scanBox(row pgx.Row) (*CashBox, error) {
	var (
		box                    CashBox
		balARS, balUSD         int64
		incARS, incUSD         int64
		expARS, expUSD         int64
	)
	err := row.Scan(&box.ID, &box.Scope, &box.ProjectID, &balARS, &balUSD,
		&incARS, &incUSD, &expARS, &expUSD, &box.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBoxNotFound
	}
	if err != nil {
		return nil, err
	}
	box.BalanceARS = fromMinor(balARS)
	box.BalanceUSD = fromMinor(balUSD)
	box.TotalIncomeARS = fromMinor(incARS)
	box.TotalIncomeUSD = fromMinor(incUSD)
	box.TotalExpensesARS = fromMinor(expARS)
	box.TotalExpensesUSD = fromMinor(expUSD)
	return &box, nil
}

// GetBox retrieves a cash box by scope, with project id for project boxes.
func (r *Repository) GetBox(ctx context.Context, scope Scope, projectID *uuid.UUID) (*CashBox, error) {
	if scope == ScopeProject {
		if projectID == nil {
			return nil, fmt.Errorf("%w: project box requires a project id", shared.ErrValidation)
		}
		row := r.pool.QueryRow(ctx, `SELECT `+boxColumns+` FROM cash_boxes WHERE scope=$1 AND project_id=$2`,
			scope, projectID)
		return scanBox(row)
	}
	row := r.pool.QueryRow(ctx, `SELECT `+boxColumns+` FROM cash_boxes WHERE scope=$1 AND project_id IS NULL`, scope)
	return scanBox(row)
}

// ProvisionBoxTx creates an empty cash box inside the caller's transaction.
func (r *Repository) ProvisionBoxTx(ctx context.Context, tx pgx.Tx, scope Scope, projectID *uuid.UUID) (*CashBox, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO cash_boxes (id, scope, project_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING `+boxColumns, uuid.New(), scope, projectID)
	return scanBox(row)
}

// balanceColumns maps a currency to its column triple. Currencies are
// validated before they reach here, so interpolation is safe.
func balanceColumns(c shared.Currency) (bal, inc, exp string) {
	if c == shared.USD {
		return "balance_usd", "total_income_usd", "total_expenses_usd"
	}
	return "balance_ars", "total_income_ars", "total_expenses_ars"
}

// ApplyDeltaTx applies an income/expense delta to one box, atomically
// with whatever else runs in the same transaction. The balance moves by
// income − expense; running totals only ever grow.
func (r *Repository) ApplyDeltaTx(ctx context.Context, tx pgx.Tx, scope Scope, projectID *uuid.UUID, currency shared.Currency, income, expense decimal.Decimal) (*CashBox, error) {
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, currency)
	}
	bal, inc, exp := balanceColumns(currency)
	where := `scope=$3 AND project_id IS NULL`
	args := []any{toMinor(income), toMinor(expense), scope}
	if scope == ScopeProject {
		if projectID == nil {
			return nil, fmt.Errorf("%w: project box requires a project id", shared.ErrValidation)
		}
		where = `scope=$3 AND project_id=$4`
		args = append(args, projectID)
	}
	query := fmt.Sprintf(`
		UPDATE cash_boxes
		SET %[1]s = %[1]s + $1 - $2,
			%[2]s = %[2]s + $1,
			%[3]s = %[3]s + $2,
			updated_at = NOW()
		WHERE %[4]s
		RETURNING `+boxColumns, bal, inc, exp, where)
	return scanBox(tx.QueryRow(ctx, query, args...))
}

// AppendMovementTx appends one journal entry inside the caller's
// transaction. Entries are never updated or deleted afterwards.
func (r *Repository) AppendMovementTx(ctx context.Context, tx pgx.Tx, in MovementInput) (*CashMovement, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: movement amount must be > 0", shared.ErrValidation)
	}
	if !in.Currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, in.Currency)
	}
	m := CashMovement{
		ID:               uuid.New(),
		Type:             in.Type,
		SourceScope:      in.SourceScope,
		DestinationScope: in.DestinationScope,
		Amount:           shared.Round2(in.Amount),
		Currency:         in.Currency,
		ProjectID:        in.ProjectID,
		InstallmentID:    in.InstallmentID,
		Method:           in.Method,
		Reference:        in.Reference,
		Note:             in.Note,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO cash_movements (
			id, movement_type, source_scope, destination_scope, amount, currency,
			project_id, installment_id, method, reference, note, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
		RETURNING created_at`,
		m.ID, m.Type, m.SourceScope, m.DestinationScope, toMinor(m.Amount), m.Currency,
		m.ProjectID, m.InstallmentID, m.Method, m.Reference, m.Note)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMovements returns journal entries, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]CashMovement, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, movement_type, source_scope, destination_scope, amount, currency,
			project_id, installment_id, method, reference, note, created_at
		FROM cash_movements WHERE 1=1`
	args := []any{}
	if filter.ProjectID != nil {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id=$%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND movement_type=$%d", len(args))
	}
	if filter.Currency != "" {
		args = append(args, filter.Currency)
		query += fmt.Sprintf(" AND currency=$%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CashMovement
	for rows.Next() {
		var (
			m     CashMovement
			minor int64
		)
		if err := rows.Scan(&m.ID, &m.Type, &m.SourceScope, &m.DestinationScope, &minor, &m.Currency,
			&m.ProjectID, &m.InstallmentID, &m.Method, &m.Reference, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Amount = fromMinor(minor)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MovementTotals aggregates journal amounts for a project by type and currency.
func (r *Repository) MovementTotals(ctx context.Context, projectID uuid.UUID) ([]TypeTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT movement_type, currency, COALESCE(SUM(amount), 0)
		FROM cash_movements
		WHERE project_id=$1
		GROUP BY movement_type, currency
		ORDER BY movement_type, currency`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeTotal
	for rows.Next() {
		var (
			t     TypeTotal
			minor int64
		)
		if err := rows.Scan(&t.Type, &t.Currency, &minor); err != nil {
			return nil, err
		}
		t.Total = fromMinor(minor)
		out = append(out, t)
	}
	return out, rows.Err()
}
