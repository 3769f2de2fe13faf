package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg, "test")

	m.ConnAccepted()
	m.ConnAccepted()
	m.ConnClosed()
	m.PacketReceived(10)
	m.PacketSent(4)

	assert.InDelta(t, 2, testutil.ToFloat64(m.acceptedTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.activeConnections), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.packetsReceived), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.bytesReceived), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.packetsSent), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.bytesSent), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics

	m.ConnAccepted()
	m.ConnClosed()
	m.PacketReceived(1)
	m.PacketSent(1)
}
