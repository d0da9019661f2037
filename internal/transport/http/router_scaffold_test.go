package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimatch/internal/catalog"
	filesource "unimatch/internal/catalog/source/file"
	"unimatch/internal/eligibility/handler"
	"unimatch/internal/eligibility/service"
	"unimatch/pkg/testutil"
)

func TestRouterWithShippedCatalog(t *testing.T) {
	testutil.Given(t, "the router serving the shipped catalog", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		registry := catalog.NewRegistry()
		_, err := registry.Reload(context.Background(), filesource.New(filepath.Join("..", "..", "..", "catalog", "catalog.yaml")))
		require.NoError(t, err)
		router := NewRouter(logger, nil, registry, nil,
			handler.New(service.New(registry), logger, handler.DefaultMaxPageSize))

		testutil.When(t, "a complete candidate is evaluated", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/eligibility/evaluate", map[string]any{
				"subjects": []map[string]any{
					{"name": "Mathematics", "mark": 82},
					{"name": "Physical Sciences", "mark": 78},
					{"name": "English Home Language", "mark": 70},
					{"name": "Life Sciences", "mark": 75},
					{"name": "Geography", "mark": 68},
					{"name": "Accounting", "mark": 71},
					{"name": "Life Orientation", "mark": 80},
				},
				"sort_by": "program",
			}))

			testutil.Then(t, "it answers with a grouped report", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				resp := testutil.UnmarshalResponse[handler.EvaluateResponse](t, rec)
				assert.Equal(t, "2026.1", resp.CatalogVersion)
				assert.NotEmpty(t, resp.Groups)
				assert.Positive(t, resp.Summary.EligibleCount)
			})
		})

		testutil.When(t, "a candidate has too few subjects", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/eligibility/evaluate",
				`{"subjects":[{"name":"Mathematics","mark":82}]}`))

			testutil.Then(t, "it refuses to match", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusUnprocessableEntity, "profile_incomplete")
			})
		})

		testutil.When(t, "health is probed", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))

			testutil.Then(t, "the catalog is reported resolved", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rec.Code)
				resp := testutil.UnmarshalResponse[HealthResponse](t, rec)
				assert.Equal(t, catalog.StateResolved, resp.Catalog)
			})
		})
	})
}
