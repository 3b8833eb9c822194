package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics the client maintains.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationsFailed  *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	UserCancellations prometheus.Counter
}

// NewMetrics registers metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry registers metrics on the given registry.
// Tests pass a private registry to avoid duplicate registration.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletcore_operations_total",
			Help: "Operations dispatched, by operation name",
		}, []string{"operation"}),
		OperationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletcore_operations_failed_total",
			Help: "Operations that settled with a failure, by operation name",
		}, []string{"operation"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletcore_events_published_total",
			Help: "Events published to registered handlers, by event name",
		}, []string{"event"}),
		UserCancellations: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletcore_user_cancellations_total",
			Help: "Operations the user deliberately rejected in their wallet",
		}),
	}
}
