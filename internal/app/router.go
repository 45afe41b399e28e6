package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obrastock/obrastock/internal/budget"
	"github.com/obrastock/obrastock/internal/ledger"
	"github.com/obrastock/obrastock/internal/masterdata/fronts"
	"github.com/obrastock/obrastock/internal/masterdata/materials"
	"github.com/obrastock/obrastock/internal/observability"
	"github.com/obrastock/obrastock/internal/procurement"
	"github.com/obrastock/obrastock/internal/reports"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RequisitionHandler *requisition.Handler
	ProcurementHandler *procurement.Handler
	LedgerHandler      *ledger.Handler
	BudgetHandler      *budget.Handler
	ReportsHandler     *reports.Handler
	MaterialsHandler   *materials.Handler
	FrontsHandler      *fronts.Handler
	JobsHandler        *jobs.Handler
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness failed", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		if params.RequisitionHandler != nil {
			api.Route("/requisitions", params.RequisitionHandler.MountRoutes)
		}
		if params.ProcurementHandler != nil {
			api.Route("/procurement", params.ProcurementHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			api.Route("/warehouse", params.LedgerHandler.MountRoutes)
		}
		if params.BudgetHandler != nil {
			api.Route("/budgets", params.BudgetHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			api.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.MaterialsHandler != nil {
			api.Route("/materials", params.MaterialsHandler.MountRoutes)
		}
		if params.FrontsHandler != nil {
			api.Route("/fronts", params.FrontsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
