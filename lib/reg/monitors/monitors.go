// Package monitors is the counter bundle the bootstrap controller registers
// when the node opens for traffic and unregisters when it stops. The
// counters themselves are always live; registration only controls whether
// they are exported.
package monitors

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regat_registry_registrations_total",
		Help: "Instance registrations accepted.",
	})
	Cancels = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regat_registry_cancels_total",
		Help: "Instance cancellations accepted.",
	})
	Renews = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regat_registry_renews_total",
		Help: "Lease renewals accepted.",
	})
	ReplicationAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regat_registry_replication_attempts_total",
		Help: "Replication sends attempted.",
	})
	ReplicationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regat_registry_replication_failures_total",
		Help: "Replication sends that failed.",
	})
)

// Bundle groups the node's collectors so bootstrap can register and retract
// them as a unit.
type Bundle struct {
	registerer prometheus.Registerer
	collectors []prometheus.Collector
}

// NewBundle builds the bundle. size and peerCount feed the two gauges; nil
// funcs report zero.
func NewBundle(size func() int, peerCount func() int) *Bundle {
	gauge := func(fn func() int) func() float64 {
		return func() float64 {
			if fn == nil {
				return 0
			}
			return float64(fn())
		}
	}

	return &Bundle{
		collectors: []prometheus.Collector{
			Registrations,
			Cancels,
			Renews,
			ReplicationAttempts,
			ReplicationFailures,
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "regat_registry_instances",
				Help: "Instance records currently stored.",
			}, gauge(size)),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "regat_peers_nodes",
				Help: "Peer nodes in the active set.",
			}, gauge(peerCount)),
		},
	}
}

// Register adds every collector to registerer. Collectors that are already
// registered are fine; a node restarted in place re-registers without
// error.
func (T *Bundle) Register(registerer prometheus.Registerer) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	T.registerer = registerer

	for _, collector := range T.collectors {
		if err := registerer.Register(collector); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Shutdown retracts every collector registered by Register.
func (T *Bundle) Shutdown() {
	if T.registerer == nil {
		return
	}
	for _, collector := range T.collectors {
		T.registerer.Unregister(collector)
	}
}
