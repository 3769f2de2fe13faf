package internal

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanListener feeds pre-built connections to the accept loop.
type chanListener struct {
	conns   chan ConnWrapper
	stopped chan struct{}
	once    sync.Once
}

func newChanListener() *chanListener {
	return &chanListener{
		conns:   make(chan ConnWrapper, 4),
		stopped: make(chan struct{}),
	}
}

func (l *chanListener) Start(_ context.Context) error {
	return nil
}

func (l *chanListener) Stop(_ context.Context) error {
	l.once.Do(func() {
		close(l.stopped)
	})

	return nil
}

func (l *chanListener) Accept(ctx context.Context) (ConnWrapper, error) {
	select {
	case cw := <-l.conns:
		return cw, nil
	case <-l.stopped:
		return ConnWrapper{}, net.ErrClosed
	case <-ctx.Done():
		return ConnWrapper{}, ctx.Err()
	}
}

func (l *chanListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func (l *chanListener) Endpoint() (string, error) {
	return "tcp://127.0.0.1:0", nil
}

func TestServerDisconnectedListenerSeesDepartingPeer(t *testing.T) {
	t.Parallel()

	lis := newChanListener()

	s, err := NewBaseServer("drop", lis, nil)
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() {
		_ = s.Disconnect(context.Background())
	})

	connected := make(chan uint64, 1)
	s.AddConnectedListener(func(_ string, id uint64) {
		connected <- id
	})

	// The departing peer must still be registered while disconnected
	// listeners run, so a callback can still address it.
	present := make(chan bool, 4)
	s.AddDisconnectedListener(func(_ string, id uint64) {
		present <- s.peers.get(id) != nil
	})

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	lis.conns <- NewConnWrapper(7, local)

	var id uint64
	select {
	case id = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("no connected notification")
	}

	s.DisconnectPeer(context.Background(), id)

	select {
	case inTable := <-present:
		assert.True(t, inTable)
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnected notification")
	}

	// Dropping the same id again must not notify a second time.
	s.DisconnectPeer(context.Background(), id)

	select {
	case <-present:
		t.Fatal("disconnected listeners fired twice for one peer")
	case <-time.After(200 * time.Millisecond):
	}
}
