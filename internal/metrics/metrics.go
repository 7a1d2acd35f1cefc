// Package metrics exposes prometheus counters/gauges for a running session.
// Registration happens once per process via the default registry; callers
// that need isolation (tests) should use NewRegistry and its own collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups every metric a session reports. A nil *Collectors is
// safe to use: every method becomes a no-op, so components can hold an
// unconditional reference without special-casing tests that don't care
// about metrics.
type Collectors struct {
	PacketsSent       *prometheus.CounterVec
	PacketsReceived   *prometheus.CounterVec
	CRCFailures       prometheus.Counter
	Retransmits       prometheus.Counter
	RetransmitsDropped prometheus.Counter
	AcksReceived      prometheus.Counter
	NacksReceived     prometheus.Counter
	ReassemblyDrops   *prometheus.CounterVec
	WindowOverflows   *prometheus.CounterVec
	KeyFrameRequests  prometheus.Counter
	FramesDecoded     *prometheus.CounterVec
	KeepAliveRTT      prometheus.Histogram
}

// New creates a fresh Collectors registered against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// registry; pass prometheus.DefaultRegisterer in a real process.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ihs", Name: "packets_sent_total", Help: "Packets sent, by type.",
		}, []string{"type"}),
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ihs", Name: "packets_received_total", Help: "Packets received, by type.",
		}, []string{"type"}),
		CRCFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ihs", Name: "crc_failures_total", Help: "Packets dropped for CRC mismatch.",
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ihs", Name: "retransmits_total", Help: "Packets retransmitted.",
		}),
		RetransmitsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ihs", Name: "retransmits_dropped_total", Help: "Retransmissions abandoned after exhausting attempts.",
		}),
		AcksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ihs", Name: "acks_received_total", Help: "ACK packets received.",
		}),
		NacksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ihs", Name: "nacks_received_total", Help: "NACK packets received.",
		}),
		ReassemblyDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ihs", Name: "reassembly_drops_total", Help: "Packets dropped by a reassembly window, by reason.",
		}, []string{"reason"}),
		WindowOverflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ihs", Name: "window_overflows_total", Help: "Fatal reassembly window overflows, by channel.",
		}, []string{"channel"}),
		KeyFrameRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ihs", Name: "video_keyframe_requests_total", Help: "Key-frame re-requests issued by the video reassembler.",
		}),
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ihs", Name: "frames_decoded_total", Help: "Frames handed to a decoder callback, by stream.",
		}, []string{"stream"}),
		KeepAliveRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ihs", Name: "keepalive_rtt_seconds", Help: "Observed keep-alive round trip time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.PacketsSent, c.PacketsReceived, c.CRCFailures, c.Retransmits,
			c.RetransmitsDropped, c.AcksReceived, c.NacksReceived,
			c.ReassemblyDrops, c.WindowOverflows, c.KeyFrameRequests,
			c.FramesDecoded, c.KeepAliveRTT,
		)
	}
	return c
}

func (c *Collectors) incPacketsSent(typ string) {
	if c == nil {
		return
	}
	c.PacketsSent.WithLabelValues(typ).Inc()
}

func (c *Collectors) incPacketsReceived(typ string) {
	if c == nil {
		return
	}
	c.PacketsReceived.WithLabelValues(typ).Inc()
}

// PacketSent records an outbound packet of the given wire type name.
func (c *Collectors) PacketSent(typ string) { c.incPacketsSent(typ) }

// PacketReceived records an inbound packet of the given wire type name.
func (c *Collectors) PacketReceived(typ string) { c.incPacketsReceived(typ) }

// CRCFailure records a dropped packet due to CRC mismatch.
func (c *Collectors) CRCFailure() {
	if c == nil {
		return
	}
	c.CRCFailures.Inc()
}

// Retransmit records a retransmit attempt.
func (c *Collectors) Retransmit() {
	if c == nil {
		return
	}
	c.Retransmits.Inc()
}

// RetransmitExhausted records a retransmission that was dropped after
// exceeding its attempt limit.
func (c *Collectors) RetransmitExhausted() {
	if c == nil {
		return
	}
	c.RetransmitsDropped.Inc()
}

// Ack records an inbound ACK.
func (c *Collectors) Ack() {
	if c == nil {
		return
	}
	c.AcksReceived.Inc()
}

// Nack records an inbound NACK.
func (c *Collectors) Nack() {
	if c == nil {
		return
	}
	c.NacksReceived.Inc()
}

// ReassemblyDrop records a packet dropped by a reassembly window.
func (c *Collectors) ReassemblyDrop(reason string) {
	if c == nil {
		return
	}
	c.ReassemblyDrops.WithLabelValues(reason).Inc()
}

// WindowOverflow records a fatal window overflow for the named channel.
func (c *Collectors) WindowOverflow(channel string) {
	if c == nil {
		return
	}
	c.WindowOverflows.WithLabelValues(channel).Inc()
}

// KeyFrameRequest records a key-frame re-request.
func (c *Collectors) KeyFrameRequest() {
	if c == nil {
		return
	}
	c.KeyFrameRequests.Inc()
}

// FrameDecoded records a frame delivered to a decoder callback.
func (c *Collectors) FrameDecoded(stream string) {
	if c == nil {
		return
	}
	c.FramesDecoded.WithLabelValues(stream).Inc()
}

// ObserveKeepAliveRTT records an observed keep-alive round trip.
func (c *Collectors) ObserveKeepAliveRTT(seconds float64) {
	if c == nil {
		return
	}
	c.KeepAliveRTT.Observe(seconds)
}
