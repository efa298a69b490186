package installments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for installments.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (*Installment, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]Installment, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Service handles installment reads and schedule maintenance. Writes
// that move money live in the treasury coordinator.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns one installment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Installment, error) {
	return s.repo.Get(ctx, id)
}

// ListByProject returns a project's schedule.
func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) ([]Installment, error) {
	return s.repo.ListByProject(ctx, projectID)
}

// Preview generates a schedule without persisting it, for the payment
// plan step of project creation.
func (s *Service) Preview(ctx context.Context, p ScheduleParams) ([]ScheduleEntry, error) {
	return GenerateSchedule(p)
}

// MarkOverdue flips pending installments past due as of now.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return s.repo.MarkOverdue(ctx, now)
}
