package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/omnera-dev/omnera/internal/config"
	"github.com/omnera-dev/omnera/internal/engine"
	"github.com/omnera-dev/omnera/internal/observability"
	"github.com/omnera-dev/omnera/internal/registry"
	"github.com/omnera-dev/omnera/internal/render"
	"github.com/omnera-dev/omnera/model"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config   *config.Config
	Engine   *engine.Engine
	Registry *registry.Registry
	Renderer *render.Renderer
	Logger   *zap.Logger

	// Metrics and Gatherer are optional; without them no request metrics
	// are recorded and the metrics route is not mounted.
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	Readiness observability.ReadinessChecks

	// AdminAuth guards /admin. Nil leaves the admin routes open.
	AdminAuth func(http.Handler) http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// handler timeout and the admin guard.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config

	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(RequestID)
	r.Use(CORS(cfg.Server.CORS))
	r.Use(SecurityHeaders)
	r.Use(observability.TracingMiddleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}
	r.Use(RequestLogging(logger))

	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Readiness))
	if deps.Gatherer != nil && cfg.Observability.Metrics.Enabled {
		path := cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, observability.Handler(deps.Gatherer))
	}

	reg := deps.Registry
	r.Group(func(r chi.Router) {
		r.Use(HandlerTimeout(cfg.Server.HandlerTimeout))

		r.Get("/", handleHome(reg, deps.Renderer))

		r.Route("/api", func(r chi.Router) {
			r.Get("/app", handleGetApplication(reg))
			r.Get("/tables/{tableId}", handleGetEntity(reg, model.KindTable, "tableId", reg.GetTable))
			r.Get("/pages/{pageId}", handleGetEntity(reg, model.KindPage, "pageId", reg.GetPage))
			r.Get("/automations/{automationId}", handleGetEntity(reg, model.KindAutomation, "automationId", reg.GetAutomation))
			r.Get("/connections/{connectionId}", handleGetEntity(reg, model.KindConnection, "connectionId", reg.GetConnection))
			r.Post("/validate", handleValidate(deps.Engine, cfg.Server.MaxBodyBytes))
			r.Get("/openapi.json", handleOpenAPI(reg))
		})

		r.Route("/admin", func(r chi.Router) {
			if deps.AdminAuth != nil {
				r.Use(deps.AdminAuth)
			}
			r.Post("/reload", handleReload(deps.Engine))
			r.Get("/snapshots", handleListSnapshots(deps.Engine))
			r.Get("/snapshots/{snapshotId}", handleGetSnapshot(deps.Engine))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: &model.ErrorEnvelope{
			Code:    model.ErrBadRequest,
			Message: r.Method + " is not allowed on " + r.URL.Path,
		}})
	})

	return r
}
