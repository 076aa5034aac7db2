package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "404"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/pizza-1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "404"))
	assert.Equal(t, before+1, after)
}

func TestRecorders(t *testing.T) {
	hits := testutil.ToFloat64(cacheTotal.WithLabelValues(CacheHit))
	RecordCache(CacheHit)
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheTotal.WithLabelValues(CacheHit)))

	items := testutil.ToFloat64(strategyItems.WithLabelValues("popular"))
	RecordStrategy("popular", 3)
	assert.Equal(t, items+3, testutil.ToFloat64(strategyItems.WithLabelValues("popular")))

	errs := testutil.ToFloat64(strategyErrors.WithLabelValues("seasonal"))
	RecordStrategyError("seasonal")
	assert.Equal(t, errs+1, testutil.ToFloat64(strategyErrors.WithLabelValues("seasonal")))

	ObserveCompute(5 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(computeDuration))
}

func TestHandlerServesExposition(t *testing.T) {
	RecordCache(CacheMiss)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dineflow_recommend_cache_total")
}
