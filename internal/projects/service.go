package projects

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/shared"
)

// RepositoryPort defines data access methods for projects and
// investors.
type RepositoryPort interface {
	CreateProject(ctx context.Context, p Project, schedule []installments.ScheduleEntry) (*Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	CreateInvestor(ctx context.Context, in CreateInvestorInput) (*Investor, error)
	GetInvestor(ctx context.Context, id uuid.UUID) (*Investor, error)
	ListInvestors(ctx context.Context) ([]Investor, error)
}

// Service manages project and investor master data.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateProject validates the payment plan, generates the installment
// schedule and provisions the project with its cash box in one go.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*CreatedProject, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", shared.ErrValidation)
	}
	if !in.Currency.Valid() {
		return nil, fmt.Errorf("%w: currency %q", shared.ErrValidation, in.Currency)
	}
	if in.DownPaymentPct.IsNegative() || in.DownPaymentPct.GreaterThanOrEqual(shared.Hundred) {
		return nil, fmt.Errorf("%w: down payment percentage must be in [0, 100)", shared.ErrValidation)
	}
	if in.AdminFeePercentage != nil {
		fee := *in.AdminFeePercentage
		if fee.IsNegative() || fee.GreaterThan(shared.Hundred) {
			return nil, fmt.Errorf("%w: admin fee percentage must be in [0, 100]", shared.ErrValidation)
		}
	}

	downPayment := shared.Round2(in.TotalAmount.Mul(in.DownPaymentPct).Div(shared.Hundred))
	schedule, err := installments.GenerateSchedule(installments.ScheduleParams{
		Total:           in.TotalAmount,
		DownPayment:     downPayment,
		Count:           in.InstallmentCount,
		Frequency:       in.Frequency,
		FirstDate:       in.FirstDueDate,
		DownPaymentDate: in.DownPaymentDate,
	})
	if err != nil {
		return nil, err
	}

	project := Project{
		ID:                 uuid.New(),
		Name:               in.Name,
		ClientName:         in.ClientName,
		Currency:           in.Currency,
		TotalAmount:        shared.Round2(in.TotalAmount),
		DownPayment:        downPayment,
		InstallmentCount:   in.InstallmentCount,
		Frequency:          in.Frequency,
		FirstDueDate:       in.FirstDueDate.UTC().Truncate(24 * time.Hour),
		AdminFeePercentage: in.AdminFeePercentage,
		Status:             ProjectActive,
	}
	created, err := s.repo.CreateProject(ctx, project, schedule)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		slog.String("project_id", created.ID.String()),
		slog.String("name", created.Name),
		slog.Int("installments", len(schedule)))
	return &CreatedProject{Project: *created, Schedule: schedule}, nil
}

// GetProject retrieves one project.
func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.repo.ListProjects(ctx)
}

// CreateInvestor registers an investor.
func (s *Service) CreateInvestor(ctx context.Context, in CreateInvestorInput) (*Investor, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: investor name is required", shared.ErrValidation)
	}
	if in.Email == "" {
		return nil, fmt.Errorf("%w: investor email is required", shared.ErrValidation)
	}
	return s.repo.CreateInvestor(ctx, in)
}

// GetInvestor retrieves one investor.
func (s *Service) GetInvestor(ctx context.Context, id uuid.UUID) (*Investor, error) {
	return s.repo.GetInvestor(ctx, id)
}

// ListInvestors returns all investors.
func (s *Service) ListInvestors(ctx context.Context) ([]Investor, error) {
	return s.repo.ListInvestors(ctx)
}
