package shared

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
)

// EquityLockKey derives the advisory-lock key serializing share
// validation per project. Two concurrent additions for the same project
// must not both validate against a stale total.
func EquityLockKey(projectID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("equity:" + projectID))
	return int64(h.Sum64())
}

// AcquireTxLock takes a transaction-scoped advisory lock. It is released
// automatically when the enclosing transaction commits or rolls back.
func AcquireTxLock(ctx context.Context, tx pgx.Tx, key int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
		return fmt.Errorf("shared: advisory lock: %w", err)
	}
	return nil
}
