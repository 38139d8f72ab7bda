package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	RunTotal        *prometheus.CounterVec // labels: mode, status=ok|degraded|critical
	CheckTotal      *prometheus.CounterVec // labels: category, status=passed|failed|skipped
	CheckDuration   *prometheus.HistogramVec
	RunLastStatus   prometheus.Gauge // 0=ok 1=degraded 2=critical
	NotifyTotal     *prometheus.CounterVec // labels: result=sent|error|skipped
	CleanupFailures prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		RunTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_run_total",
			Help: "Completed check runs by mode and overall status.",
		}, []string{"mode", "status"}),
		CheckTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_check_total",
			Help: "Individual check outcomes by category and status.",
		}, []string{"category", "status"}),
		CheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_check_duration_seconds",
			Help:    "Wall time of individual checks.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"category"}),
		RunLastStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_run_last_status",
			Help: "Overall status of the most recent run (0=ok 1=degraded 2=critical).",
		}),
		NotifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_notify_total",
			Help: "Alert notification attempts by result.",
		}, []string{"result"}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_cleanup_failure_total",
			Help: "Best-effort cleanup failures.",
		}),
	}
	reg.MustRegister(m.RunTotal, m.CheckTotal, m.CheckDuration, m.RunLastStatus, m.NotifyTotal, m.CleanupFailures)
	return m
}
