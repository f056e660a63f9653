package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enzomar/archipilot/vault"
)

// Metrics holds the Prometheus instrumentation for serve mode.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	vaultDocuments  *prometheus.GaugeVec
	indexRebuilds   prometheus.Counter
	pendingPruned   prometheus.Counter
}

// NewMetrics builds a metrics set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archipilot_commands_total",
			Help: "Commands processed, by command name and outcome.",
		}, []string{"command", "status"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archipilot_command_duration_seconds",
			Help:    "Command processing time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"command"}),
		vaultDocuments: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "archipilot_vault_documents",
			Help: "Documents in the vault, by kind.",
		}, []string{"kind"}),
		indexRebuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "archipilot_index_rebuilds_total",
			Help: "Vault index rebuilds triggered by file changes.",
		}),
		pendingPruned: factory.NewCounter(prometheus.CounterOpts{
			Name: "archipilot_pending_edits_pruned_total",
			Help: "Expired pending edits removed by the janitor.",
		}),
	}
}

// ObserveCommand records one processed command.
func (m *Metrics) ObserveCommand(command, status string, seconds float64) {
	if command == "" {
		command = "none"
	}
	m.commandsTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(seconds)
}

// SetVaultCounts publishes per-kind document counts from an index.
func (m *Metrics) SetVaultCounts(idx *vault.Index) {
	counts := idx.CountsByKind()
	for _, kind := range vault.AllKinds {
		m.vaultDocuments.WithLabelValues(kind.String()).Set(float64(counts[kind]))
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
