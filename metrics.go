package netcore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters maintained by a Responder.  A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Frames        *prometheus.CounterVec
	Replies       *prometheus.CounterVec
	Drops         *prometheus.CounterVec
	UDPDispatched prometheus.Counter
}

// NewMetrics creates the responder counters and registers them with reg.
// If reg is nil, the counters are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netcore_frames_total",
				Help: "Total number of frames handed to the responder",
			},
			[]string{"ethertype"},
		),
		Replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netcore_replies_total",
				Help: "Total number of replies transmitted",
			},
			[]string{"protocol"},
		),
		Drops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netcore_drops_total",
				Help: "Total number of frames dropped without a reply",
			},
			[]string{"protocol", "reason"},
		),
		UDPDispatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "netcore_udp_dispatched_total",
				Help: "Total number of UDP datagrams passed to the UDP handler",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Frames, m.Replies, m.Drops, m.UDPDispatched)
	}
	return m
}

func (m *Metrics) frame(ethertype string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(ethertype).Inc()
}

func (m *Metrics) reply(proto string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(proto).Inc()
}

func (m *Metrics) drop(proto string, d drop) {
	if m == nil {
		return
	}
	m.Drops.WithLabelValues(proto, d.String()).Inc()
}

func (m *Metrics) udp() {
	if m == nil {
		return
	}
	m.UDPDispatched.Inc()
}
