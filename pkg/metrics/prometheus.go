package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// HTTP-прокси метрики
	ProxyRequestsTotal   *prometheus.CounterVec
	ProxyRequestDuration *prometheus.HistogramVec

	// gRPC метрики (приём телеметрии)
	GRPCRequestsTotal    *prometheus.CounterVec
	GRPCRequestDuration  *prometheus.HistogramVec
	GRPCRequestsInFlight prometheus.Gauge

	// Метрики ранжирования и репликации
	RankingDuration       *prometheus.HistogramVec
	ReplicationFanoutSize *prometheus.HistogramVec
	ReplicaCancellations  *prometheus.CounterVec
	CompletionDuration    *prometheus.HistogramVec
	NodesRanked           prometheus.Gauge

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		ProxyRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "proxy_requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"strategy", "completion_policy", "status"},
		),

		ProxyRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "proxy_request_duration_seconds",
				Help:      "End-to-end duration of a proxied request",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"strategy"},
		),

		GRPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_total",
				Help:      "Total number of gRPC requests",
			},
			[]string{"method", "status"},
		),

		GRPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_request_duration_seconds",
				Help:      "Duration of gRPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		GRPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_in_flight",
				Help:      "Current number of gRPC requests being processed",
			},
		),

		RankingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ranking_duration_seconds",
				Help:      "Duration of an MCDM ranking pass",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
			},
			[]string{"algorithm", "weights_strategy"},
		),

		ReplicationFanoutSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "replication_fanout_size",
				Help:      "Number of replica targets dispatched per request",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
			[]string{"strategy"},
		),

		ReplicaCancellations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "replica_cancellations_total",
				Help:      "Number of replica tasks cancelled after completion policy was satisfied",
			},
			[]string{"strategy"},
		),

		CompletionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "completion_duration_seconds",
				Help:      "Time until a completion policy reached is_done()",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"policy"},
		),

		NodesRanked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "nodes_ranked",
				Help:      "Number of candidate nodes in the most recent ranking pass",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	prometheus.MustRegister(NewRuntimeCollector(namespace, subsystem))

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("balancer", "gateway")
	}
	return defaultMetrics
}

// RecordProxyRequest записывает метрики проксированного запроса
func (m *Metrics) RecordProxyRequest(strategy, completionPolicy, status string, duration time.Duration) {
	m.ProxyRequestsTotal.WithLabelValues(strategy, completionPolicy, status).Inc()
	m.ProxyRequestDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordGRPCRequest записывает метрики gRPC запроса
func (m *Metrics) RecordGRPCRequest(method string, status string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRanking записывает длительность ранжирования узлов
func (m *Metrics) RecordRanking(algorithm, weightsStrategy string, duration time.Duration, candidateCount int) {
	m.RankingDuration.WithLabelValues(algorithm, weightsStrategy).Observe(duration.Seconds())
	m.NodesRanked.Set(float64(candidateCount))
}

// RecordReplication записывает размер фан-аута и завершение completion policy
func (m *Metrics) RecordReplication(strategy, completionPolicy string, fanout, cancelled int, completionDuration time.Duration) {
	m.ReplicationFanoutSize.WithLabelValues(strategy).Observe(float64(fanout))
	if cancelled > 0 {
		m.ReplicaCancellations.WithLabelValues(strategy).Add(float64(cancelled))
	}
	m.CompletionDuration.WithLabelValues(completionPolicy).Observe(completionDuration.Seconds())
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
