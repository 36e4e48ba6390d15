package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	m := NewMetrics()
	m.AlertCreated()
	m.AlertCreated()
	m.AlertStatusChanged("resolved")
	m.SightingSubmitted()
	m.EvidenceUploaded("recompressed")
	m.SetActiveAlerts(5)
	m.SetRealtimeClients("sse", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.alertsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertStatusChanges.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sightingsSubmitted))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.activeAlerts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.realtimeClients.WithLabelValues("sse")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AlertCreated()
		m.SetActiveAlerts(1)
		m.Verification(true, false)
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/alerts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alerts/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/api/alerts/:id",status="204"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
