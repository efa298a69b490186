package equity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/platform/httpx"
)

// Handler exposes equity share endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers equity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/projects/{projectID}/shares", h.addShare)
	r.Get("/projects/{projectID}/shares", h.listShares)
	r.Get("/projects/{projectID}/shares/remaining", h.remaining)
	r.Get("/projects/{projectID}/shares/invested", h.invested)
	r.Patch("/shares/{shareID}", h.updateShare)
	r.Delete("/shares/{shareID}", h.removeShare)
}

type addShareRequest struct {
	InvestorID      string `json:"investor_id" validate:"required,uuid4"`
	InvestmentType  string `json:"investment_type" validate:"required"`
	Amount          string `json:"amount"`
	EstimatedValue  string `json:"estimated_value"`
	PercentageShare string `json:"percentage_share" validate:"required"`
	Note            string `json:"note" validate:"max=500"`
}

func parseOptionalDecimal(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *Handler) addShare(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	var req addShareRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}

	investorID, _ := uuid.Parse(req.InvestorID)
	percentage, err := decimal.NewFromString(req.PercentageShare)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "percentage_share is not a number")
		return
	}
	amount, err := parseOptionalDecimal(req.Amount)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "amount is not a number")
		return
	}
	estimated, err := parseOptionalDecimal(req.EstimatedValue)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "estimated_value is not a number")
		return
	}

	result, err := h.service.AddShare(r.Context(), ShareInput{
		ProjectID:       projectID,
		InvestorID:      investorID,
		InvestmentType:  InvestmentType(req.InvestmentType),
		Amount:          amount,
		EstimatedValue:  estimated,
		PercentageShare: percentage,
		Note:            req.Note,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listShares(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	shares, err := h.service.ListByProject(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shares": shares})
}

func (h *Handler) remaining(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	remaining, err := h.service.RemainingPercentage(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"remaining_percentage": remaining})
}

func (h *Handler) invested(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	totals, err := h.service.TotalInvested(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

type updateShareRequest struct {
	PercentageShare string `json:"percentage_share" validate:"required"`
}

func (h *Handler) updateShare(w http.ResponseWriter, r *http.Request) {
	shareID, err := uuid.Parse(chi.URLParam(r, "shareID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid share id", err.Error())
		return
	}
	var req updateShareRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	percentage, err := decimal.NewFromString(req.PercentageShare)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "percentage_share is not a number")
		return
	}

	share, err := h.service.UpdateShare(r.Context(), shareID, percentage)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, share)
}

func (h *Handler) removeShare(w http.ResponseWriter, r *http.Request) {
	shareID, err := uuid.Parse(chi.URLParam(r, "shareID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid share id", err.Error())
		return
	}
	if err := h.service.RemoveShare(r.Context(), shareID); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
