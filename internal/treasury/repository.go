package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/platform/db"
	"github.com/obralink/obralink/internal/shared"
)

// Repository is the PostgreSQL unit of work for the coordinator. It
// composes the ledger and installment repositories under one pgx
// transaction.
type Repository struct {
	pool         *pgxpool.Pool
	ledger       *ledger.Repository
	installments *installments.Repository
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, ledgerRepo *ledger.Repository, installmentRepo *installments.Repository) *Repository {
	return &Repository{pool: pool, ledger: ledgerRepo, installments: installmentRepo}
}

var _ UnitOfWork = (*Repository)(nil)

// InTx runs fn inside one RepeatableRead transaction.
func (r *Repository) InTx(ctx context.Context, fn func(TxOps) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txOps{tx: tx, repo: r})
	})
}

type txOps struct {
	tx   pgx.Tx
	repo *Repository
}

func (t *txOps) GetInstallmentForUpdate(ctx context.Context, id uuid.UUID) (*installments.Installment, error) {
	return t.repo.installments.GetForUpdateTx(ctx, t.tx, id)
}

func (t *txOps) MarkInstallmentPaid(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, paidDate time.Time) error {
	return t.repo.installments.MarkPaidTx(ctx, t.tx, id, paidAmount, paidDate)
}

func (t *txOps) MarkFeeCollected(ctx context.Context, id uuid.UUID) error {
	return t.repo.installments.MarkFeeCollectedTx(ctx, t.tx, id)
}

func (t *txOps) AppendMovement(ctx context.Context, in ledger.MovementInput) (*ledger.CashMovement, error) {
	return t.repo.ledger.AppendMovementTx(ctx, t.tx, in)
}

func (t *txOps) ApplyDelta(ctx context.Context, scope ledger.Scope, projectID *uuid.UUID, currency shared.Currency, income, expense decimal.Decimal) (*ledger.CashBox, error) {
	return t.repo.ledger.ApplyDeltaTx(ctx, t.tx, scope, projectID, currency, income, expense)
}
