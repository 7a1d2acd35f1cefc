package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNilCollectorsAreNoOps(t *testing.T) {
	var c *Collectors
	require.NotPanics(t, func() {
		c.PacketSent("reliable")
		c.CRCFailure()
		c.Retransmit()
		c.Ack()
		c.ReassemblyDrop("duplicate")
		c.WindowOverflow("video")
		c.ObserveKeepAliveRTT(0.02)
	})
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.PacketSent("reliable")
	c.PacketSent("reliable")
	c.CRCFailure()
	c.Retransmit()
	c.Ack()

	require.Equal(t, float64(2), counterValue(t, c.PacketsSent.WithLabelValues("reliable")))
	require.Equal(t, float64(1), counterValue(t, c.CRCFailures))
	require.Equal(t, float64(1), counterValue(t, c.Retransmits))
	require.Equal(t, float64(1), counterValue(t, c.AcksReceived))
}
