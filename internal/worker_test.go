package internal

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packetSink struct {
	mu      sync.Mutex
	packets []*xnet.Packet
	arrived chan struct{}
}

func newPacketSink() *packetSink {
	return &packetSink{arrived: make(chan struct{}, 16)}
}

func (s *packetSink) onPacket(_ uint64, p *xnet.Packet) {
	s.mu.Lock()
	s.packets = append(s.packets, p)
	s.mu.Unlock()

	s.arrived <- struct{}{}
}

func (s *packetSink) wait(t *testing.T) *xnet.Packet {
	t.Helper()

	select {
	case <-s.arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("no packet arrived")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.packets[len(s.packets)-1]
}

func startTestWorker(t *testing.T, sink *packetSink) (*Worker, net.Conn, chan error) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	w := NewWorker(1, local, conf.Default().Worker, nil, sink.onPacket)

	done := make(chan error, 1)

	go func() {
		done <- w.Run(context.Background())
	}()

	return w, remote, done
}

func TestWorkerReceive(t *testing.T) {
	t.Parallel()

	sink := newPacketSink()
	w, remote, _ := startTestWorker(t, sink)

	_, err := remote.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	p := sink.wait(t)
	assert.Equal(t, []byte{1, 2, 3}, p.Data())
	assert.Equal(t, 3, p.Length())
	assert.False(t, p.EOS())

	require.NoError(t, w.Stop(context.Background()))
}

func TestWorkerTransmit(t *testing.T) {
	t.Parallel()

	sink := newPacketSink()
	w, remote, _ := startTestWorker(t, sink)

	p, err := xnet.NewPacket([]byte("hello"), 5)
	require.NoError(t, err)

	w.Enqueue(p)

	buf := make([]byte, 16)
	require.NoError(t, remote.SetReadDeadline(time.Now().Add(2*time.Second)))

	n, err := remote.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), buf[:n])

	assert.Equal(t, 0, w.QueueLen())

	require.NoError(t, w.Stop(context.Background()))
}

func TestWorkerEndOfStream(t *testing.T) {
	t.Parallel()

	sink := newPacketSink()
	_, remote, done := startTestWorker(t, sink)

	require.NoError(t, remote.Close())

	p := sink.wait(t)
	assert.True(t, p.EOS())
	assert.Equal(t, xnet.EndOfStreamLength, p.Length())

	select {
	case err := <-done:
		// Peer close is an orderly end, not a fault.
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish after peer close")
	}
}

func TestWorkerStopUnblocksRun(t *testing.T) {
	t.Parallel()

	sink := newPacketSink()
	w, _, done := startTestWorker(t, sink)

	require.NoError(t, w.Stop(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish after stop")
	}

	assert.True(t, w.OnStopping())
}

func TestWorkerEnqueueAfterStop(t *testing.T) {
	t.Parallel()

	sink := newPacketSink()
	w, _, done := startTestWorker(t, sink)

	require.NoError(t, w.Stop(context.Background()))
	<-done

	p, err := xnet.NewPacket([]byte{1}, 1)
	require.NoError(t, err)

	// Silently dropped.
	w.Enqueue(p)
	assert.Equal(t, 0, w.QueueLen())
}

func TestWorkerContextCancelUnblocksRun(t *testing.T) {
	t.Parallel()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	w := NewWorker(1, local, conf.Default().Worker, nil, func(uint64, *xnet.Packet) {})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish after context cancel")
	}
}
