package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obralink/obralink/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for access tokens.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

const tokenColumns = `id, token, investor_id, expires_at, is_active, last_accessed_at, created_at`

func scanToken(row pgx.Row) (*AccessToken, error) {
	var t AccessToken
	err := row.Scan(&t.ID, &t.Token, &t.InvestorID, &t.ExpiresAt, &t.IsActive, &t.LastAccessedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Insert(ctx context.Context, t AccessToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO investor_access_tokens (id, token, investor_id, expires_at, is_active, last_accessed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.Token, t.InvestorID, t.ExpiresAt, t.IsActive, t.LastAccessedAt, t.CreatedAt)
	return err
}

// FindActiveByToken resolves an active token with its investor. Unknown
// and revoked tokens both map to ErrTokenInvalid; expiry is the
// service's call, it owns the clock.
func (r *Repository) FindActiveByToken(ctx context.Context, token string) (*AccessToken, *Investor, error) {
	var (
		t   AccessToken
		inv Investor
	)
	err := r.pool.QueryRow(ctx, `
		SELECT t.id, t.token, t.investor_id, t.expires_at, t.is_active, t.last_accessed_at, t.created_at,
			i.id, i.name, i.email
		FROM investor_access_tokens t
		JOIN investors i ON i.id = t.investor_id
		WHERE t.token=$1 AND t.is_active`, token).
		Scan(&t.ID, &t.Token, &t.InvestorID, &t.ExpiresAt, &t.IsActive, &t.LastAccessedAt, &t.CreatedAt,
			&inv.ID, &inv.Name, &inv.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, nil, err
	}
	return &t, &inv, nil
}

func (r *Repository) TouchLastAccessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE investor_access_tokens SET last_accessed_at=$2 WHERE id=$1`, id, at)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*AccessToken, error) {
	return scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM investor_access_tokens WHERE id=$1`, id))
}

func (r *Repository) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE investor_access_tokens SET is_active=FALSE WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenInvalid
	}
	return nil
}

// Swap deactivates the old token and inserts its replacement as one
// transaction.
func (r *Repository) Swap(ctx context.Context, oldID uuid.UUID, replacement AccessToken) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE investor_access_tokens SET is_active=FALSE WHERE id=$1 AND is_active`, oldID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrTokenInvalid
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO investor_access_tokens (id, token, investor_id, expires_at, is_active, last_accessed_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			replacement.ID, replacement.Token, replacement.InvestorID, replacement.ExpiresAt,
			replacement.IsActive, replacement.LastAccessedAt, replacement.CreatedAt)
		return err
	})
}

func (r *Repository) ListByInvestor(ctx context.Context, investorID uuid.UUID) ([]AccessToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+` FROM investor_access_tokens
		WHERE investor_id=$1 ORDER BY created_at DESC`, investorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccessToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
