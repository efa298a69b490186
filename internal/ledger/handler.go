package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/platform/httpx"
	"github.com/obralink/obralink/internal/shared"
)

// Handler exposes the ledger's read side: boxes, the journal and
// project summaries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/boxes/master", h.masterBox)
	r.Get("/boxes/admin", h.adminBox)
	r.Get("/projects/{projectID}/box", h.projectBox)
	r.Get("/projects/{projectID}/summary", h.projectSummary)
	r.Get("/movements", h.listMovements)
}

func (h *Handler) masterBox(w http.ResponseWriter, r *http.Request) {
	box, err := h.service.MasterBox(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, box)
}

func (h *Handler) adminBox(w http.ResponseWriter, r *http.Request) {
	box, err := h.service.AdminBox(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, box)
}

func projectIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "projectID"))
}

func (h *Handler) projectBox(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	box, err := h.service.ProjectBox(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, box)
}

func (h *Handler) projectSummary(w http.ResponseWriter, r *http.Request) {
	projectID, err := projectIDParam(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	summary, err := h.service.ProjectSummary(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	var filter MovementFilter

	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
			return
		}
		filter.ProjectID = &id
	}
	filter.Type = MovementType(r.URL.Query().Get("type"))
	if raw := r.URL.Query().Get("currency"); raw != "" {
		currency, err := shared.ParseCurrency(raw)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		filter.Currency = currency
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid limit", "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}

	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}
