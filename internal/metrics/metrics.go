// Package metrics defines the Prometheus collectors exported by a running
// node, following the promauto/Namespace-Subsystem pattern used by
// caddyserver/caddy's metrics.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lorarouting"

// Collectors is the set of metrics tracked by the engine.
// Call New to construct one registered against a given registerer (or the
// default one, if reg is nil).
type Collectors struct {
	FramesAdmitted   *prometheus.CounterVec
	FramesDropped    *prometheus.CounterVec
	TableOccupancy   prometheus.Gauge
	RelaxationPasses prometheus.Counter
}

// New constructs and registers a fresh Collectors. reg may be nil, in which
// case prometheus.DefaultRegisterer is used via promauto.
func New(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collectors{
		FramesAdmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "frames_admitted_total",
			Help:      "Count of inbound frames successfully admitted into the routing table.",
		}, []string{"kind"}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "frames_dropped_total",
			Help:      "Count of inbound frames dropped, by reason.",
		}, []string{"reason"}),
		TableOccupancy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routetable",
			Name:      "occupied_slots",
			Help:      "Number of occupied slots in the routing table.",
		}),
		RelaxationPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "relaxation_passes_total",
			Help:      "Count of local Bellman-Ford relaxation passes run.",
		}),
	}
}
