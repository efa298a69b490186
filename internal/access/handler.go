package access

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/equity"
	"github.com/obralink/obralink/internal/platform/httpx"
)

// PositionLister supplies an investor's portal view.
type PositionLister interface {
	InvestorPositions(ctx context.Context, investorID uuid.UUID) ([]equity.Position, error)
}

// Handler exposes token management for staff and the public portal
// endpoint behind the magic link.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	positions PositionLister
	validate  *validator.Validate
	baseURL   string
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, positions PositionLister, baseURL string) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		positions: positions,
		validate:  validator.New(),
		baseURL:   baseURL,
	}
}

// MountRoutes registers staff-facing token routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/investors/{investorID}/access-tokens", h.issue)
	r.Get("/investors/{investorID}/access-tokens", h.list)
	r.Delete("/access-tokens/{id}", h.revoke)
	r.Post("/access-tokens/refresh", h.refresh)
}

// MountPortal registers the public magic-link endpoint. Tighter rate
// limit than the rest of the API since tokens are guessable in theory.
func (h *Handler) MountPortal(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/investor/{token}", h.portal)
	})
}

type issueRequest struct {
	ExpiresInDays *int `json:"expires_in_days" validate:"omitempty,min=1,max=3650"`
}

type tokenResponse struct {
	Token     *AccessToken `json:"token"`
	MagicLink string       `json:"magic_link"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	investorID, err := uuid.Parse(chi.URLParam(r, "investorID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid investor id", err.Error())
		return
	}
	var req issueRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
			return
		}
	}
	token, err := h.service.Issue(r.Context(), investorID, req.ExpiresInDays)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tokenResponse{Token: token, MagicLink: MagicLink(h.baseURL, token.Token)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	investorID, err := uuid.Parse(chi.URLParam(r, "investorID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid investor id", err.Error())
		return
	}
	tokens, err := h.service.ListByInvestor(r.Context(), investorID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid token id", err.Error())
		return
	}
	if err := h.service.Revoke(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	token, err := h.service.Refresh(r.Context(), req.Token)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: token, MagicLink: MagicLink(h.baseURL, token.Token)})
}

type portalResponse struct {
	Investor  *Investor         `json:"investor"`
	Positions []equity.Position `json:"positions"`
}

func (h *Handler) portal(w http.ResponseWriter, r *http.Request) {
	investor, err := h.service.Validate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	positions, err := h.positions.InvestorPositions(r.Context(), investor.ID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, portalResponse{Investor: investor, Positions: positions})
}
