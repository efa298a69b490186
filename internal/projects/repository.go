package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/platform/db"
	"github.com/obralink/obralink/internal/shared"
)

// ErrProjectNotFound indicates a missing project.
var ErrProjectNotFound = fmt.Errorf("projects: project %w", shared.ErrNotFound)

// ErrInvestorNotFound indicates a missing investor.
var ErrInvestorNotFound = fmt.Errorf("projects: investor %w", shared.ErrNotFound)

// Repository provides PostgreSQL backed persistence for projects and
// investors. Project creation composes the ledger and installments
// repositories inside one transaction.
type Repository struct {
	pool         *pgxpool.Pool
	ledgerRepo   *ledger.Repository
	installments *installments.Repository
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, ledgerRepo *ledger.Repository, installmentsRepo *installments.Repository) *Repository {
	return &Repository{pool: pool, ledgerRepo: ledgerRepo, installments: installmentsRepo}
}

var _ RepositoryPort = (*Repository)(nil)

func toMinor(d decimal.Decimal) int64 { return shared.Round2(d).Shift(2).IntPart() }

func toBasisPoints(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	bp := shared.Round2(*d).Shift(2).IntPart()
	return &bp
}

const projectColumns = `id, name, client_name, currency, total_amount, down_payment,
	installment_count, frequency, first_due_date, admin_fee_bp, status, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var (
		p                  Project
		total, down        int64
		adminFeeBP         *int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.ClientName, &p.Currency, &total, &down,
		&p.InstallmentCount, &p.Frequency, &p.FirstDueDate, &adminFeeBP, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	p.TotalAmount = decimal.New(total, -2)
	p.DownPayment = decimal.New(down, -2)
	if adminFeeBP != nil {
		fee := decimal.New(*adminFeeBP, -2)
		p.AdminFeePercentage = &fee
	}
	return &p, nil
}

// CreateProject inserts the project row, provisions its cash box and
// bulk-inserts the schedule as one transaction.
func (r *Repository) CreateProject(ctx context.Context, p Project, schedule []installments.ScheduleEntry) (*Project, error) {
	var created *Project
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO projects (
				id, name, client_name, currency, total_amount, down_payment,
				installment_count, frequency, first_due_date, admin_fee_bp, status, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
			RETURNING `+projectColumns,
			p.ID, p.Name, p.ClientName, p.Currency, toMinor(p.TotalAmount), toMinor(p.DownPayment),
			p.InstallmentCount, p.Frequency, p.FirstDueDate, toBasisPoints(p.AdminFeePercentage), p.Status)
		var err error
		created, err = scanProject(row)
		if err != nil {
			return mapPgError(err)
		}
		if _, err := r.ledgerRepo.ProvisionBoxTx(ctx, tx, ledger.ScopeProject, &created.ID); err != nil {
			return err
		}
		return r.installments.InsertScheduleTx(ctx, tx, created.ID, schedule, p.AdminFeePercentage)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetProject retrieves one project.
func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
}

// ListProjects returns all projects, newest first.
func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

const investorColumns = `id, name, email, phone, created_at`

func scanInvestor(row pgx.Row) (*Investor, error) {
	var inv Investor
	err := row.Scan(&inv.ID, &inv.Name, &inv.Email, &inv.Phone, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvestorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvestor inserts an investor. Duplicate emails conflict.
func (r *Repository) CreateInvestor(ctx context.Context, in CreateInvestorInput) (*Investor, error) {
	inv, err := scanInvestor(r.pool.QueryRow(ctx, `
		INSERT INTO investors (id, name, email, phone, created_at)
		VALUES ($1,$2,$3,$4,NOW())
		RETURNING `+investorColumns,
		uuid.New(), in.Name, in.Email, in.Phone))
	if err != nil {
		return nil, mapPgError(err)
	}
	return inv, nil
}

// GetInvestor retrieves one investor.
func (r *Repository) GetInvestor(ctx context.Context, id uuid.UUID) (*Investor, error) {
	return scanInvestor(r.pool.QueryRow(ctx, `SELECT `+investorColumns+` FROM investors WHERE id=$1`, id))
}

// ListInvestors returns all investors ordered by name.
func (r *Repository) ListInvestors(ctx context.Context) ([]Investor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+investorColumns+` FROM investors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Investor
	for rows.Next() {
		inv, err := scanInvestor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// mapPgError turns unique violations into the conflict sentinel.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("projects: %s: %w", pgErr.ConstraintName, shared.ErrConflict)
	}
	return err
}
