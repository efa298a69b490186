package ledger

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort defines data access methods for ledger reads.
type RepositoryPort interface {
	GetBox(ctx context.Context, scope Scope, projectID *uuid.UUID) (*CashBox, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]CashMovement, error)
	MovementTotals(ctx context.Context, projectID uuid.UUID) ([]TypeTotal, error)
}

// Service exposes the read side of the ledger: box balances, the
// movement journal and per-project summaries. All mutation goes through
// the treasury coordinator.
type Service struct {
	repo  RepositoryPort
	cache *SummaryCache
	group singleflight.Group
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *SummaryCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// MasterBox returns the firm-wide cash box.
func (s *Service) MasterBox(ctx context.Context) (*CashBox, error) {
	return s.repo.GetBox(ctx, ScopeMaster, nil)
}

// AdminBox returns the personal admin cash box.
func (s *Service) AdminBox(ctx context.Context) (*CashBox, error) {
	return s.repo.GetBox(ctx, ScopeAdmin, nil)
}

// ProjectBox returns one project's cash box.
func (s *Service) ProjectBox(ctx context.Context, projectID uuid.UUID) (*CashBox, error) {
	return s.repo.GetBox(ctx, ScopeProject, &projectID)
}

// Movements lists journal entries matching the filter, newest first.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]CashMovement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// ProjectSummary returns the project box plus journal totals by type.
// Results are cached briefly; concurrent recomputations for the same
// project collapse into a single repository round trip.
func (s *Service) ProjectSummary(ctx context.Context, projectID uuid.UUID) (*ProjectSummary, error) {
	if cached, err := s.cache.Get(ctx, projectID); err == nil && cached != nil {
		return cached, nil
	}

	v, err, _ := s.group.Do(projectID.String(), func() (any, error) {
		box, err := s.repo.GetBox(ctx, ScopeProject, &projectID)
		if err != nil {
			return nil, err
		}
		totals, err := s.repo.MovementTotals(ctx, projectID)
		if err != nil {
			return nil, err
		}
		summary := &ProjectSummary{ProjectID: projectID, Box: *box, Totals: totals}
		_ = s.cache.Set(ctx, summary)
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProjectSummary), nil
}

// InvalidateSummary drops the cached summary; the treasury coordinator
// calls this after every committed write touching the project.
func (s *Service) InvalidateSummary(ctx context.Context, projectID uuid.UUID) {
	_ = s.cache.Invalidate(ctx, projectID)
}
