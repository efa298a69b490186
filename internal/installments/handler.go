package installments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/platform/httpx"
	"github.com/obralink/obralink/internal/shared"
)

// Handler exposes installment reads, schedule previews and overdue
// maintenance.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers installment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/installments", h.listByProject)
	r.Get("/installments/{installmentID}", h.get)
	r.Post("/installments/preview", h.preview)
	r.Post("/installments/mark-overdue", h.markOverdue)
}

func (h *Handler) listByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	list, err := h.service.ListByProject(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"installments": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "installmentID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid installment id", err.Error())
		return
	}
	installment, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, installment)
}

type previewRequest struct {
	Total           string `json:"total" validate:"required"`
	DownPayment     string `json:"down_payment"`
	Count           int    `json:"count" validate:"required,min=1,max=360"`
	Frequency       string `json:"frequency" validate:"required,oneof=weekly biweekly monthly quarterly"`
	FirstDate       string `json:"first_date" validate:"required,datetime=2006-01-02"`
	DownPaymentDate string `json:"down_payment_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}

	total, err := shared.ParseAmount(req.Total)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	params := ScheduleParams{
		Total:     total,
		Count:     req.Count,
		Frequency: Frequency(req.Frequency),
	}
	if req.DownPayment != "" {
		down, err := decimal.NewFromString(req.DownPayment)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "down_payment is not a number")
			return
		}
		params.DownPayment = down
	}
	params.FirstDate, _ = time.Parse("2006-01-02", req.FirstDate)
	if req.DownPaymentDate != "" {
		params.DownPaymentDate, _ = time.Parse("2006-01-02", req.DownPaymentDate)
	}

	entries, err := h.service.Preview(r.Context(), params)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedule": entries})
}

func (h *Handler) markOverdue(w http.ResponseWriter, r *http.Request) {
	marked, err := h.service.MarkOverdue(r.Context(), time.Now().UTC())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"marked": marked})
}
