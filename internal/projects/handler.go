package projects

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/platform/httpx"
	"github.com/obralink/obralink/internal/shared"
)

// Handler exposes project and investor master data endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers project and investor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/projects", h.createProject)
	r.Get("/projects", h.listProjects)
	r.Get("/projects/{projectID}", h.getProject)

	r.Post("/investors", h.createInvestor)
	r.Get("/investors", h.listInvestors)
	r.Get("/investors/{investorID}", h.getInvestor)
}

type createProjectRequest struct {
	Name               string `json:"name" validate:"required,max=200"`
	ClientName         string `json:"client_name" validate:"max=200"`
	Currency           string `json:"currency" validate:"required,oneof=ARS USD"`
	TotalAmount        string `json:"total_amount" validate:"required"`
	DownPaymentPct     string `json:"down_payment_pct"`
	InstallmentCount   int    `json:"installment_count" validate:"required,min=1,max=360"`
	Frequency          string `json:"frequency" validate:"required,oneof=weekly biweekly monthly quarterly"`
	FirstDueDate       string `json:"first_due_date" validate:"required,datetime=2006-01-02"`
	DownPaymentDate    string `json:"down_payment_date" validate:"omitempty,datetime=2006-01-02"`
	AdminFeePercentage string `json:"admin_fee_percentage"`
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}

	total, err := shared.ParseAmount(req.TotalAmount)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	downPct := decimal.Zero
	if req.DownPaymentPct != "" {
		if downPct, err = decimal.NewFromString(req.DownPaymentPct); err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "down_payment_pct is not a number")
			return
		}
	}
	var adminFee *decimal.Decimal
	if req.AdminFeePercentage != "" {
		fee, err := decimal.NewFromString(req.AdminFeePercentage)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "admin_fee_percentage is not a number")
			return
		}
		adminFee = &fee
	}
	firstDue, _ := time.Parse("2006-01-02", req.FirstDueDate)
	var downDate time.Time
	if req.DownPaymentDate != "" {
		downDate, _ = time.Parse("2006-01-02", req.DownPaymentDate)
	}

	created, err := h.service.CreateProject(r.Context(), CreateProjectInput{
		Name:               req.Name,
		ClientName:         req.ClientName,
		Currency:           shared.Currency(req.Currency),
		TotalAmount:        total,
		DownPaymentPct:     downPct,
		InstallmentCount:   req.InstallmentCount,
		Frequency:          installments.Frequency(req.Frequency),
		FirstDueDate:       firstDue,
		DownPaymentDate:    downDate,
		AdminFeePercentage: adminFee,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

type createInvestorRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"max=50"`
}

func (h *Handler) createInvestor(w http.ResponseWriter, r *http.Request) {
	var req createInvestorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	investor, err := h.service.CreateInvestor(r.Context(), CreateInvestorInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, investor)
}

func (h *Handler) listInvestors(w http.ResponseWriter, r *http.Request) {
	investors, err := h.service.ListInvestors(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"investors": investors})
}

func (h *Handler) getInvestor(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "investorID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid investor id", err.Error())
		return
	}
	investor, err := h.service.GetInvestor(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, investor)
}
