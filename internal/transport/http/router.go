package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unimatch/internal/catalog"
	"unimatch/internal/platform/metrics"
	"unimatch/pkg/platform/httputil"
	"unimatch/pkg/platform/middleware/metadata"
	"unimatch/pkg/platform/middleware/requesttime"
	"unimatch/pkg/requestcontext"
)

// Registrar mounts a bounded context's endpoints on a versioned subrouter.
type Registrar interface {
	Register(r chi.Router)
}

// CatalogState reports whether a catalog snapshot is published.
type CatalogState interface {
	State() (catalog.State, string)
}

// Check is a named dependency probe for /health.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string            `json:"status"`
	Catalog        catalog.State     `json:"catalog"`
	CatalogVersion string            `json:"catalog_version,omitempty"`
	Checks         map[string]string `json:"checks,omitempty"`
}

// NewRouter wires the public API under /v1 plus /health and /metrics.
// Handlers stay thin and delegate to domain services.
// m may be nil.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, state CatalogState, checks []Check, v1 ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger, m))

	r.Get("/health", handleHealth(state, checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		for _, reg := range v1 {
			reg.Register(api)
		}
	})
	return r
}

// handleHealth returns 503 until a catalog is resolved or while any probe fails.
func handleHealth(state CatalogState, checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		catalogState, version := state.State()
		resp := HealthResponse{Status: "ok", Catalog: catalogState, CatalogVersion: version}
		status := http.StatusOK
		if catalogState != catalog.StateResolved {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Probe(ctx); err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func accessLog(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := requestcontext.Now(r.Context())
			next.ServeHTTP(ww, r)
			if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
				return
			}
			elapsed := time.Since(start)
			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, ww.Status(), elapsed)
			logger.InfoContext(r.Context(), "http request",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"client_ip", requestcontext.ClientIP(r.Context()),
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}
