package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brandeduk/catalog/internal/service"
	"github.com/brandeduk/catalog/pkg/health"
	"github.com/brandeduk/catalog/pkg/middleware"
)

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	healthHandler *health.Handler,
	cors middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("catalog"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	catalogHandler := NewCatalogHandler(catalogService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/styles", func(r chi.Router) {
			r.Get("/", catalogHandler.List)
			r.Get("/facets", catalogHandler.Facets)
			r.Get("/{code}", catalogHandler.Style)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/invalidate", catalogHandler.Invalidate)
			r.Post("/snapshot/refresh", catalogHandler.RefreshSnapshot)
		})
	})

	return r
}
