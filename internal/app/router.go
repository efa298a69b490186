package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obralink/obralink/internal/access"
	"github.com/obralink/obralink/internal/auth"
	"github.com/obralink/obralink/internal/equity"
	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/ledger"
	"github.com/obralink/obralink/internal/observability"
	"github.com/obralink/obralink/internal/projects"
	"github.com/obralink/obralink/internal/treasury"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	Pool                *pgxpool.Pool
	Metrics             *observability.Metrics
	AuthHandler         *auth.Handler
	ProjectsHandler     *projects.Handler
	LedgerHandler       *ledger.Handler
	InstallmentsHandler *installments.Handler
	TreasuryHandler     *treasury.Handler
	EquityHandler       *equity.Handler
	AccessHandler       *access.Handler
}

// NewRouter constructs the chi.Router with Obralink defaults. Staff
// routes sit behind the session middleware; the investor portal is
// public, guarded only by its token and a tighter rate limit.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Public: login and the investor magic link.
	params.AuthHandler.MountRoutes(r)
	params.AccessHandler.MountPortal(r)

	// Staff API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.AuthHandler.RequireSession)

		params.ProjectsHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
		params.InstallmentsHandler.MountRoutes(r)
		params.TreasuryHandler.MountRoutes(r)
		params.EquityHandler.MountRoutes(r)
		params.AccessHandler.MountRoutes(r)
	})

	return r
}
