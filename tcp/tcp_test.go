package tcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Siloft/siloft-networking/example/message"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	s, err := NewServer("test-server", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))

	t.Cleanup(func() {
		_ = s.Disconnect(context.Background())
	})

	return s
}

func connectClient(t *testing.T, s *Server) *Client {
	t.Helper()

	c, err := NewClient("test-client", fmt.Sprintf("127.0.0.1:%d", s.Port()))
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))

	t.Cleanup(func() {
		_ = c.Disconnect(context.Background())
	})

	return c
}

func waitChan[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestNewServerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewServer("", "127.0.0.1:0")
	assert.ErrorIs(t, err, internal.ErrInvalidName)

	_, err = NewServer("s", "no-port")
	assert.ErrorIs(t, err, util.ErrInvalidBind)

	_, err = NewServer("s", "127.0.0.1:70000")
	assert.ErrorIs(t, err, util.ErrInvalidBind)
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", "127.0.0.1:9000")
	assert.ErrorIs(t, err, internal.ErrInvalidName)

	_, err = NewClient("c", "nowhere")
	assert.ErrorIs(t, err, util.ErrInvalidBind)
}

func TestConnectListenersFireOnce(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	connected := make(chan uint64, 4)
	disconnected := make(chan uint64, 4)

	s.AddConnectedListener(func(name string, id uint64) {
		assert.Equal(t, "test-server", name)
		connected <- id
	})
	s.AddDisconnectedListener(func(name string, id uint64) {
		disconnected <- id
	})

	c := connectClient(t, s)
	assert.True(t, c.IsConnected())

	id := waitChan(t, connected, "connected notification")
	assert.NotZero(t, id)

	require.NoError(t, c.Disconnect(context.Background()))

	gone := waitChan(t, disconnected, "disconnected notification")
	assert.Equal(t, id, gone)

	// Exactly once.
	select {
	case extra := <-disconnected:
		t.Fatalf("second disconnected notification for id %d", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClientListeners(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	c, err := NewClient("test-client", fmt.Sprintf("127.0.0.1:%d", s.Port()))
	require.NoError(t, err)

	connected := make(chan struct{}, 1)
	disconnected := make(chan struct{}, 1)

	c.AddConnectedListener(func(name string) {
		assert.Equal(t, "test-client", name)
		connected <- struct{}{}
	})
	c.AddDisconnectedListener(func(name string) {
		disconnected <- struct{}{}
	})

	require.NoError(t, c.Connect(context.Background()))
	waitChan(t, connected, "client connected notification")

	require.NoError(t, c.Disconnect(context.Background()))
	waitChan(t, disconnected, "client disconnected notification")

	assert.False(t, c.IsConnected())
}

func TestEcho(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	s.AddReceivedListener(func(name string, id uint64, msg xnet.Message) {
		p, ok := msg.(*xnet.Packet)
		require.True(t, ok)

		s.Transmit(id, p)
	})

	c := connectClient(t, s)

	received := make(chan *xnet.Packet, 1)

	c.AddReceivedListener(func(name string, msg xnet.Message) {
		p, ok := msg.(*xnet.Packet)
		require.True(t, ok)

		received <- p
	})

	out, err := xnet.NewPacket([]byte("ping"), 4)
	require.NoError(t, err)

	c.Transmit(out)

	back := waitChan(t, received, "echo")
	assert.Equal(t, []byte("ping"), back.Data())
}

func TestProtocolRoundTrip(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	reg, err := message.NewRegistry()
	require.NoError(t, err)
	s.SetProtocol(reg)

	s.AddReceivedListener(func(name string, id uint64, msg xnet.Message) {
		ping, ok := msg.(*message.Ping)
		require.True(t, ok)

		out, err := reg.Encode(&message.Ping{Seq: ping.Seq, Reply: true})
		require.NoError(t, err)

		s.Transmit(id, out)
	})

	c := connectClient(t, s)

	creg, err := message.NewRegistry()
	require.NoError(t, err)
	c.SetProtocol(creg)

	received := make(chan *message.Ping, 1)

	c.AddReceivedListener(func(name string, msg xnet.Message) {
		if ping, ok := msg.(*message.Ping); ok {
			received <- ping
		}
	})

	out, err := creg.Encode(&message.Ping{Seq: 7})
	require.NoError(t, err)

	c.Transmit(out)

	reply := waitChan(t, received, "ping reply")
	assert.Equal(t, int64(7), reply.Seq)
	assert.True(t, reply.Reply)
}

func TestTransmitNoops(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	p, err := xnet.NewPacket([]byte{1}, 1)
	require.NoError(t, err)

	// Unknown id and nil packet are silent no-ops.
	s.Transmit(12345, p)
	s.Transmit(12345, nil)
	s.Broadcast(nil)

	c, err := NewClient("idle", fmt.Sprintf("127.0.0.1:%d", s.Port()))
	require.NoError(t, err)

	// Disconnected client drops the packet.
	c.Transmit(p)
	assert.False(t, c.IsConnected())
}

func TestServerDisconnectDropsPeers(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	disconnected := make(chan uint64, 4)
	s.AddDisconnectedListener(func(name string, id uint64) {
		disconnected <- id
	})

	connectClient(t, s)

	require.Eventually(t, func() bool {
		return s.PeerCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Disconnect(context.Background()))

	waitChan(t, disconnected, "disconnected notification")
	assert.False(t, s.IsConnected())
	assert.Equal(t, 0, s.PeerCount())
}

func TestServerReconnect(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	require.NoError(t, s.Disconnect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))

	assert.True(t, s.IsConnected())
	connectClient(t, s)
}

func TestDisconnectPeer(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	connected := make(chan uint64, 1)
	s.AddConnectedListener(func(name string, id uint64) {
		connected <- id
	})

	c := connectClient(t, s)

	id := waitChan(t, connected, "connected notification")
	s.DisconnectPeer(context.Background(), id)

	require.Eventually(t, func() bool {
		return !c.IsConnected()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRemovedListenerDoesNotFire(t *testing.T) {
	t.Parallel()

	s := startServer(t)

	fired := make(chan struct{}, 4)
	token := s.AddConnectedListener(func(name string, id uint64) {
		fired <- struct{}{}
	})
	s.RemoveConnectedListener(token)

	connectClient(t, s)

	select {
	case <-fired:
		t.Fatal("removed listener fired")
	case <-time.After(300 * time.Millisecond):
	}
}
