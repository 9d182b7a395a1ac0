// Package metrics exposes the Prometheus collectors shared by both
// transports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "axolotlclient"

// Metrics bundles the gateway's collectors.
type Metrics struct {
	OpenConnections prometheus.Gauge
	Envelopes       *prometheus.CounterVec
	Frames          *prometheus.CounterVec
}

// New registers the collectors with reg. Pass
// prometheus.DefaultRegisterer outside tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Authenticated connections currently registered.",
		}),
		Envelopes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_total",
			Help:      "Envelopes dispatched on the legacy transport, by channel.",
		}, []string{"channel"}),
		Frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Binary frames read on the TCP transport, by outcome.",
		}, []string{"result"}),
	}
}
