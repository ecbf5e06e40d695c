package metrics

import (
	"net/http"

	"rate-shield/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrega os coletores Prometheus do serviço
// Usa um registry próprio para permitir múltiplas instâncias em testes
type Metrics struct {
	registry *prometheus.Registry

	checksTotal    *prometheus.CounterVec
	denialsTotal   *prometheus.CounterVec
	ddosDetections prometheus.Counter
}

// New cria e registra os coletores
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rate_shield",
			Name:      "checks_total",
			Help:      "Total rate limit checks by decision reason.",
		}, []string{"reason"}),
		denialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rate_shield",
			Name:      "denials_total",
			Help:      "Total denied requests by decision reason.",
		}, []string{"reason"}),
		ddosDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rate_shield",
			Name:      "ddos_detections_total",
			Help:      "Total requests flagged by the DDoS pattern analyzer.",
		}),
	}

	registry.MustRegister(
		m.checksTotal,
		m.denialsTotal,
		m.ddosDetections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveCheck contabiliza o resultado de uma verificação de rate limit
func (m *Metrics) ObserveCheck(result *domain.CheckResult) {
	m.checksTotal.WithLabelValues(result.Reason).Inc()
	if !result.Allowed {
		m.denialsTotal.WithLabelValues(result.Reason).Inc()
	}
}

// ObserveDDoSDetection contabiliza uma detecção do analisador de padrões
func (m *Metrics) ObserveDDoSDetection() {
	m.ddosDetections.Inc()
}

// RegisterStatsGauges registra gauges alimentados pelos snapshots de
// estatísticas do rate limiter e do analisador de DDoS
func (m *Metrics) RegisterStatsGauges(stats func() *domain.Stats, attackStats func() *domain.AttackStats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rate_shield",
			Name:      "active_clients",
			Help:      "Clients currently tracked by the rate limiter.",
		}, func() float64 {
			return float64(stats().ActiveClients)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rate_shield",
			Name:      "blocked_ips",
			Help:      "IPs currently blocked.",
		}, func() float64 {
			return float64(stats().BlockedIPs)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rate_shield",
			Name:      "suspicious_patterns",
			Help:      "Distinct (ip, endpoint) pairs tracked by the DDoS analyzer.",
		}, func() float64 {
			return float64(attackStats().SuspiciousPatterns)
		}),
	)
}

// Handler expõe o registry no formato de exposição do Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
