package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/shared"
)

type memoryRepo struct {
	box        *CashBox
	totals     []TypeTotal
	boxCalls   int
	totalCalls int
}

func (m *memoryRepo) GetBox(_ context.Context, scope Scope, projectID *uuid.UUID) (*CashBox, error) {
	m.boxCalls++
	if m.box == nil || m.box.Scope != scope {
		return nil, shared.ErrNotFound
	}
	return m.box, nil
}

func (m *memoryRepo) ListMovements(context.Context, MovementFilter) ([]CashMovement, error) {
	return nil, nil
}

func (m *memoryRepo) MovementTotals(context.Context, uuid.UUID) ([]TypeTotal, error) {
	m.totalCalls++
	return m.totals, nil
}

func newCacheForTest(t *testing.T, ttl time.Duration) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCache(client, ttl), mr
}

func testBox(projectID uuid.UUID) *CashBox {
	return &CashBox{
		ID:             uuid.New(),
		Scope:          ScopeProject,
		ProjectID:      &projectID,
		BalanceARS:     decimal.RequireFromString("25000"),
		TotalIncomeARS: decimal.RequireFromString("25000"),
	}
}

func TestProjectSummaryCachesResult(t *testing.T) {
	projectID := uuid.New()
	repo := &memoryRepo{
		box: testBox(projectID),
		totals: []TypeTotal{
			{Type: MovementProjectIncome, Currency: shared.ARS, Total: decimal.RequireFromString("25000")},
		},
	}
	cache, _ := newCacheForTest(t, time.Minute)
	svc := NewService(repo, cache)

	first, err := svc.ProjectSummary(context.Background(), projectID)
	require.NoError(t, err)
	require.Equal(t, projectID, first.ProjectID)
	require.Len(t, first.Totals, 1)
	require.Equal(t, 1, repo.boxCalls)

	second, err := svc.ProjectSummary(context.Background(), projectID)
	require.NoError(t, err)
	require.True(t, second.Box.BalanceARS.Equal(first.Box.BalanceARS))
	require.Equal(t, 1, repo.boxCalls, "second read should come from the cache")
	require.Equal(t, 1, repo.totalCalls)
}

func TestInvalidateSummaryForcesRecompute(t *testing.T) {
	projectID := uuid.New()
	repo := &memoryRepo{box: testBox(projectID)}
	cache, _ := newCacheForTest(t, time.Minute)
	svc := NewService(repo, cache)

	_, err := svc.ProjectSummary(context.Background(), projectID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.boxCalls)

	svc.InvalidateSummary(context.Background(), projectID)

	_, err = svc.ProjectSummary(context.Background(), projectID)
	require.NoError(t, err)
	require.Equal(t, 2, repo.boxCalls)
}

func TestProjectSummaryExpiredEntryRecomputes(t *testing.T) {
	projectID := uuid.New()
	repo := &memoryRepo{box: testBox(projectID)}
	cache, mr := newCacheForTest(t, time.Minute)
	svc := NewService(repo, cache)

	_, err := svc.ProjectSummary(context.Background(), projectID)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.ProjectSummary(context.Background(), projectID)
	require.NoError(t, err)
	require.Equal(t, 2, repo.boxCalls)
}

func TestProjectSummaryWithoutCache(t *testing.T) {
	projectID := uuid.New()
	repo := &memoryRepo{box: testBox(projectID)}
	svc := NewService(repo, NewSummaryCache(nil, 0))

	for i := 0; i < 2; i++ {
		summary, err := svc.ProjectSummary(context.Background(), projectID)
		require.NoError(t, err)
		require.Equal(t, projectID, summary.ProjectID)
	}
	require.Equal(t, 2, repo.boxCalls)
}

func TestProjectSummaryUnknownProject(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, NewSummaryCache(nil, 0))

	_, err := svc.ProjectSummary(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
