package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimatch/internal/catalog"
	"unimatch/internal/platform/metrics"
	"unimatch/pkg/platform/middleware/metadata"
	"unimatch/pkg/requestcontext"
)

type fixedState struct {
	state   catalog.State
	version string
}

func (f fixedState) State() (catalog.State, string) { return f.state, f.version }

type echoRegistrar struct{}

func (echoRegistrar) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.RequestID(r.Context())))
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
}

func router(state fixedState, checks ...Check) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(logger, nil, state, checks, echoRegistrar{})
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("resolved catalog is healthy", func(t *testing.T) {
		rec := get(router(fixedState{catalog.StateResolved, "v3"}), "/health")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "v3", resp.CatalogVersion)
	})

	t.Run("unresolved catalog is degraded", func(t *testing.T) {
		rec := get(router(fixedState{state: catalog.StateUnresolved}), "/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("failing probe is reported", func(t *testing.T) {
		rec := get(router(fixedState{catalog.StateResolved, "v3"},
			Check{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }},
		), "/health")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})
}

func TestV1RoutesCarryRequestID(t *testing.T) {
	rec := get(router(fixedState{catalog.StateResolved, "v1"}), "/v1/echo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get(metadata.HeaderRequestID))
}

func TestPanicsAreRecovered(t *testing.T) {
	rec := get(router(fixedState{catalog.StateResolved, "v1"}), "/v1/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(router(fixedState{catalog.StateResolved, "v1"}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestsAreCountedByRoutePattern(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRouter(logger, m, fixedState{catalog.StateResolved, "v1"}, nil, echoRegistrar{})

	get(h, "/v1/echo")
	get(h, "/v1/echo")
	get(h, "/health")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/v1/echo", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Requests), "health probes are not counted")
}
