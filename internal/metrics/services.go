// Package metrics provides Prometheus metrics for supervised services and UPS state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	serviceUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nutify",
		Subsystem: "service",
		Name:      "up",
		Help:      "Whether the supervised service is running (1) or down (0)",
	}, []string{"service"})

	serviceRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutify",
		Subsystem: "service",
		Name:      "restarts_total",
		Help:      "Total restarts performed for a supervised service",
	}, []string{"service"})

	serviceProbeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutify",
		Subsystem: "service",
		Name:      "probe_failures_total",
		Help:      "Total failed liveness probes per service and probe kind",
	}, []string{"service", "probe"})

	coordinatedRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nutify",
		Subsystem: "supervisor",
		Name:      "coordinated_restarts_total",
		Help:      "Total coordinated restarts of the full NUT stack",
	})
)

// SetServiceUp records whether a supervised service is currently running.
func SetServiceUp(service string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	serviceUp.WithLabelValues(service).Set(v)
}

// IncServiceRestart counts a restart of a supervised service.
func IncServiceRestart(service string) {
	serviceRestarts.WithLabelValues(service).Inc()
}

// IncProbeFailure counts a failed liveness probe.
// probe names the check that failed: "pidfile", "process", "port" or "ups".
func IncProbeFailure(service, probe string) {
	serviceProbeFailures.WithLabelValues(service, probe).Inc()
}

// IncCoordinatedRestart counts a full-stack coordinated restart.
func IncCoordinatedRestart() {
	coordinatedRestarts.Inc()
}

// DeleteServiceMetrics removes all per-service metrics for a service.
func DeleteServiceMetrics(service string) {
	serviceUp.DeleteLabelValues(service)
	serviceRestarts.DeleteLabelValues(service)
	serviceProbeFailures.DeletePartialMatch(prometheus.Labels{"service": service})
}
