package internal

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Siloft/siloft-networking/protocol"
	"github.com/Siloft/siloft-networking/server"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-pantheon/fabrica-util/errors"
	"github.com/go-pantheon/fabrica-util/xsync"
)

// ErrInvalidName is returned when constructing a connection with an empty
// name.
var ErrInvalidName = errors.New("invalid name")

var _ transport.Server = (*BaseServer)(nil)
var _ transport.Endpointer = (*BaseServer)(nil)

// BaseServer is the transport-agnostic server connection: it owns the
// listener, the table of per-peer connections, the protocol registry, and
// the listener registrations. Transport packages wrap it with a concrete
// Listener implementation.
type BaseServer struct {
	*server.Options

	name     string
	listener Listener
	peers    *peerTable

	mu        sync.Mutex
	connected bool
	stop      chan struct{}

	registry atomic.Pointer[protocol.Registry]

	connectedCBs    callbackList[xnet.ConnectedListener]
	disconnectedCBs callbackList[xnet.DisconnectedListener]
	receivedCBs     callbackList[xnet.ReceivedListener]
}

// NewBaseServer creates an unconnected server. It fails fast with
// ErrInvalidName when name is empty; transport constructors validate their
// own bind material before calling it.
func NewBaseServer(name string, listener Listener, options *server.Options) (*BaseServer, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	if options == nil {
		options = server.NewOptions()
	}

	s := &BaseServer{
		Options:  options,
		name:     name,
		listener: listener,
	}

	s.peers = newPeerTable(s.Conf().Bucket)

	return s, nil
}

// Connect binds the listening socket and starts the accept loop. It is a
// no-op when already connected. On failure no workers are started and the
// server remains disconnected.
func (s *BaseServer) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	if err := s.listener.Start(ctx); err != nil {
		return errors.Wrapf(err, "server %s connect failed", s.name)
	}

	s.stop = make(chan struct{})
	s.connected = true
	stop := s.stop

	xsync.Go(fmt.Sprintf("server.%s.acceptLoop", s.name), func() error {
		return s.acceptLoop(ctx, stop)
	})

	log.Infof("[server] %s listening on %s", s.name, s.listener.Addr())

	return nil
}

func (s *BaseServer) acceptLoop(ctx context.Context, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.accept(ctx, stop); err != nil {
				if !s.IsConnected() {
					return nil
				}

				// Transient accept faults are retried while the server is up.
				log.Errorf("[server] %s %+v", s.name, err)
			}
		}
	}
}

// accept handles exactly one inbound connection: register the peer, notify
// connected listeners, and start its worker pair, all before the next accept
// is issued.
func (s *BaseServer) accept(ctx context.Context, stop <-chan struct{}) error {
	cw, err := s.listener.Accept(ctx)
	if err != nil {
		return errors.Wrapf(err, "accept failed")
	}

	w := NewWorker(cw.ID, cw.Conn, s.Conf().Worker, s.Metrics(), s.handlePacket)

	if old := s.peers.put(w); old != nil {
		// Should be impossible with a monotonic id generator.
		log.Errorf("[server] %s replaced peer id=%d", s.name, old.ID())

		if stopErr := old.Stop(ctx); stopErr != nil {
			log.Errorf("[server] %s stop replaced peer: %+v", s.name, stopErr)
		}
	}

	s.Metrics().ConnAccepted()
	s.notifyConnected(cw.ID)

	xsync.Go(fmt.Sprintf("server.%s.peer-%d", s.name, cw.ID), func() error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		err := w.Run(ctx)
		s.dropPeer(context.WithoutCancel(ctx), cw.ID)

		return err
	})

	return nil
}

// handlePacket is invoked by receive workers with every raw Packet read from
// a peer socket, in read order.
func (s *BaseServer) handlePacket(id uint64, p *xnet.Packet) {
	if p.EOS() {
		s.dropPeer(context.Background(), id)
		return
	}

	if reg := s.registry.Load(); reg != nil {
		for _, m := range reg.Decode(p) {
			s.deliver(id, m)
		}

		return
	}

	s.deliver(id, p)
}

func (s *BaseServer) deliver(id uint64, msg xnet.Message) {
	handler := func(ctx context.Context, req any) (any, error) {
		s.notifyReceived(ctx, id, req)
		return nil, nil
	}

	if f := s.ReadFilter(); f != nil {
		handler = f(handler)
	}

	if _, err := handler(context.Background(), msg); err != nil {
		log.Errorf("[server] %s deliver id=%d: %+v", s.name, id, err)
	}
}

func (s *BaseServer) notifyReceived(ctx context.Context, id uint64, msg xnet.Message) {
	guard := recovery.Recovery()

	s.receivedCBs.walk(func(cb xnet.ReceivedListener) {
		h := guard(func(ctx context.Context, req any) (any, error) {
			cb(s.name, id, req)
			return nil, nil
		})

		if _, err := h(ctx, msg); err != nil {
			log.Errorf("[server] %s received listener id=%d: %+v", s.name, id, err)
		}
	})
}

func (s *BaseServer) notifyConnected(id uint64) {
	guard := recovery.Recovery()

	s.connectedCBs.walk(func(cb xnet.ConnectedListener) {
		h := guard(func(ctx context.Context, _ any) (any, error) {
			cb(s.name, id)
			return nil, nil
		})

		if _, err := h(context.Background(), nil); err != nil {
			log.Errorf("[server] %s connected listener id=%d: %+v", s.name, id, err)
		}
	})
}

func (s *BaseServer) notifyDisconnected(id uint64) {
	guard := recovery.Recovery()

	s.disconnectedCBs.walk(func(cb xnet.DisconnectedListener) {
		h := guard(func(ctx context.Context, _ any) (any, error) {
			cb(s.name, id)
			return nil, nil
		})

		if _, err := h(context.Background(), nil); err != nil {
			log.Errorf("[server] %s disconnected listener id=%d: %+v", s.name, id, err)
		}
	})
}

// dropPeer notifies, unregisters, and stops one peer connection. It is safe
// to call from multiple paths. Listeners fire while the peer is still
// registered, so a disconnected callback may still Transmit to the departing
// id; the worker's claim keeps the notification exactly-once.
func (s *BaseServer) dropPeer(ctx context.Context, id uint64) {
	w := s.peers.get(id)
	if w == nil {
		return
	}

	if w.claimDisconnect() {
		s.notifyDisconnected(id)
	}

	if w = s.peers.remove(id); w == nil {
		return
	}

	s.Metrics().ConnClosed()

	if err := w.Stop(ctx); err != nil {
		log.Debugf("[server] %s stop peer id=%d: %+v", s.name, id, err)
	}
}

// Disconnect tears down every peer connection and closes the listening
// socket. Queued outbound packets are discarded with their connections. It
// is idempotent.
func (s *BaseServer) Disconnect(ctx context.Context) error {
	s.mu.Lock()

	if !s.connected {
		s.mu.Unlock()
		return nil
	}

	s.connected = false
	close(s.stop)
	s.mu.Unlock()

	var err error
	if stopErr := s.listener.Stop(ctx); stopErr != nil {
		err = errors.Join(err, stopErr)
	}

	ids := s.PeerIDs()
	for _, id := range ids {
		s.dropPeer(ctx, id)
	}

	log.Infof("[server] %s stopped", s.name)

	return err
}

// DisconnectPeer tears down one peer connection, notifying disconnected
// listeners for its id. Unknown ids are a no-op.
func (s *BaseServer) DisconnectPeer(ctx context.Context, id uint64) {
	s.dropPeer(ctx, id)
}

// Transmit appends p to the peer's outbound queue and signals its transmit
// worker. It is a silent no-op when the server is disconnected, p is nil, or
// id is unknown.
func (s *BaseServer) Transmit(id uint64, p *xnet.Packet) {
	if !s.IsConnected() || p == nil {
		return
	}

	w := s.peers.get(id)
	if w == nil {
		return
	}

	w.Enqueue(p)
}

// Broadcast enqueues p on every open peer connection.
func (s *BaseServer) Broadcast(p *xnet.Packet) {
	if !s.IsConnected() || p == nil {
		return
	}

	s.peers.walk(func(w *Worker) bool {
		w.Enqueue(p)
		return true
	})
}

// SetProtocol attaches a protocol registry. When unset, received Packets are
// delivered to listeners unmodified.
func (s *BaseServer) SetProtocol(r *protocol.Registry) {
	s.registry.Store(r)
}

// Protocol returns the attached registry, or nil.
func (s *BaseServer) Protocol() *protocol.Registry {
	return s.registry.Load()
}

func (s *BaseServer) AddConnectedListener(cb xnet.ConnectedListener) uint64 {
	return s.connectedCBs.add(cb)
}

func (s *BaseServer) RemoveConnectedListener(token uint64) {
	s.connectedCBs.remove(token)
}

func (s *BaseServer) AddDisconnectedListener(cb xnet.DisconnectedListener) uint64 {
	return s.disconnectedCBs.add(cb)
}

func (s *BaseServer) RemoveDisconnectedListener(token uint64) {
	s.disconnectedCBs.remove(token)
}

func (s *BaseServer) AddReceivedListener(cb xnet.ReceivedListener) uint64 {
	return s.receivedCBs.add(cb)
}

func (s *BaseServer) RemoveReceivedListener(token uint64) {
	s.receivedCBs.remove(token)
}

// IsConnected reports whether the listening socket is bound and open.
func (s *BaseServer) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

func (s *BaseServer) Name() string {
	return s.name
}

// Port returns the bound local port, or 0 when disconnected.
func (s *BaseServer) Port() int {
	addr := s.listener.Addr()
	if addr == nil {
		return 0
	}

	return portOf(addr)
}

// QueueLength returns the configured listen queue depth. The effective
// backlog is owned by the operating system.
func (s *BaseServer) QueueLength() int {
	return s.Conf().Server.QueueLength
}

// PeerIDs returns the ids of all currently open peer connections.
func (s *BaseServer) PeerIDs() []uint64 {
	ids := make([]uint64, 0, s.peers.len())

	s.peers.walk(func(w *Worker) bool {
		ids = append(ids, w.ID())
		return true
	})

	return ids
}

// PeerCount returns the number of currently open peer connections.
func (s *BaseServer) PeerCount() int {
	return s.peers.len()
}

// Start implements transport.Server.
func (s *BaseServer) Start(ctx context.Context) error {
	return s.Connect(ctx)
}

// Stop implements transport.Server.
func (s *BaseServer) Stop(ctx context.Context) error {
	return s.Disconnect(ctx)
}

// Endpoint implements transport.Endpointer.
func (s *BaseServer) Endpoint() (*url.URL, error) {
	endpoint, err := s.listener.Endpoint()
	if err != nil {
		return nil, err
	}

	return url.Parse(endpoint)
}

func portOf(addr net.Addr) int {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.Port
	case *net.UDPAddr:
		return a.Port
	default:
		_, portStr, err := net.SplitHostPort(addr.String())
		if err != nil {
			return 0
		}

		port, err := strconv.Atoi(portStr)
		if err != nil {
			return 0
		}

		return port
	}
}
