package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标管理器，所有方法对 nil 接收者安全
type Metrics struct {
	registry *prometheus.Registry

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	alertsCreated      prometheus.Counter
	alertStatusChanges *prometheus.CounterVec
	sightingsSubmitted prometheus.Counter
	evidenceUploads    *prometheus.CounterVec
	verifications      *prometheus.CounterVec
	activeAlerts       prometheus.Gauge
	realtimeClients    *prometheus.GaugeVec
}

// NewMetrics 创建指标管理器，使用独立 Registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		alertsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Total number of alerts published",
		}),
		alertStatusChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_status_changes_total",
				Help: "Alert status transitions by target status",
			},
			[]string{"status"},
		),
		sightingsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "sightings_submitted_total",
			Help: "Total number of sightings persisted",
		}),
		evidenceUploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evidence_uploads_total",
				Help: "Evidence uploads by result",
			},
			[]string{"result"},
		),
		verifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "police_verifications_total",
				Help: "Police credential verifications by outcome",
			},
			[]string{"valid", "cached"},
		),
		activeAlerts: f.NewGauge(prometheus.GaugeOpts{
			Name: "active_alerts",
			Help: "Number of alerts currently active",
		}),
		realtimeClients: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realtime_clients",
				Help: "Connected push clients by transport",
			},
			[]string{"transport"},
		),
	}
}

// Registry 供其他组件（例如限流观察器）注册自定义指标
func (m *Metrics) Registry() prometheus.Registerer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Gatherer 测试和导出使用
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler /metrics 导出
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterDB 导出数据库连接池统计
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) AlertCreated() {
	if m == nil {
		return
	}
	m.alertsCreated.Inc()
}

func (m *Metrics) AlertStatusChanged(status string) {
	if m == nil {
		return
	}
	m.alertStatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) SightingSubmitted() {
	if m == nil {
		return
	}
	m.sightingsSubmitted.Inc()
}

// EvidenceUploaded result 取值 stored / recompressed / rejected / failed
func (m *Metrics) EvidenceUploaded(result string) {
	if m == nil {
		return
	}
	m.evidenceUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) Verification(valid, cached bool) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(boolLabel(valid), boolLabel(cached)).Inc()
}

func (m *Metrics) SetActiveAlerts(n int64) {
	if m == nil {
		return
	}
	m.activeAlerts.Set(float64(n))
}

func (m *Metrics) SetRealtimeClients(transport string, n int) {
	if m == nil {
		return
	}
	m.realtimeClients.WithLabelValues(transport).Set(float64(n))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
