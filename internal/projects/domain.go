package projects

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/shared"
)

// ProjectStatus tracks a project's lifecycle.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Project is a construction engagement with a payment plan. Its cash
// box and installment schedule are provisioned at creation, never
// lazily.
type Project struct {
	ID                 uuid.UUID               `json:"id"`
	Name               string                  `json:"name"`
	ClientName         string                  `json:"client_name"`
	Currency           shared.Currency         `json:"currency"`
	TotalAmount        decimal.Decimal         `json:"total_amount"`
	DownPayment        decimal.Decimal         `json:"down_payment"`
	InstallmentCount   int                     `json:"installment_count"`
	Frequency          installments.Frequency  `json:"frequency"`
	FirstDueDate       time.Time               `json:"first_due_date"`
	AdminFeePercentage *decimal.Decimal        `json:"admin_fee_percentage,omitempty"`
	Status             ProjectStatus           `json:"status"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// Investor is a person or company putting money or assets into
// projects.
type Investor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProjectInput carries a new project's fields. The down payment
// arrives as a percentage of the total and is converted once, at
// creation.
type CreateProjectInput struct {
	Name               string
	ClientName         string
	Currency           shared.Currency
	TotalAmount        decimal.Decimal
	DownPaymentPct     decimal.Decimal
	InstallmentCount   int
	Frequency          installments.Frequency
	FirstDueDate       time.Time
	DownPaymentDate    time.Time
	AdminFeePercentage *decimal.Decimal
}

// CreateInvestorInput carries a new investor's fields.
type CreateInvestorInput struct {
	Name  string
	Email string
	Phone string
}

// CreatedProject reports a provisioned project with its generated
// schedule.
type CreatedProject struct {
	Project  Project                      `json:"project"`
	Schedule []installments.ScheduleEntry `json:"schedule"`
}
