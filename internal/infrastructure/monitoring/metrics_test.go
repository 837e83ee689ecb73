package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordFetch(200, time.Millisecond)
		m.SetBreakerState(2)
		m.RecordPage("producao", "data")
		m.RecordDroppedRows("malformed", 3)
		m.RecordSweep("producao", 10, time.Second)
	})
}

func TestRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordFetch(200, 10*time.Millisecond)
	m.RecordFetch(200, 10*time.Millisecond)
	m.RecordFetch(0, time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("error")))

	m.RecordPage("exportacao", "empty")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("exportacao", "empty")))

	m.RecordDroppedRows("all_missing", 4)
	m.RecordDroppedRows("all_missing", 0)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("all_missing")))

	m.SetBreakerState(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState))

	m.RecordSweep("producao", 42, time.Minute)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SweepRecords.WithLabelValues("producao")))
}

func TestSeparateRegistries(t *testing.T) {
	// Two collectors must not panic on duplicate registration.
	a := NewMetrics()
	b := NewMetrics()
	a.RecordPage("producao", "data")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PagesTotal.WithLabelValues("producao", "data")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/v1/:category", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/v1/producao", "/api/v1/exportacao", "/nowhere"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/v1/:category", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vitibrasil_http_requests_total")
}
