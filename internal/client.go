package internal

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Siloft/siloft-networking/client"
	"github.com/Siloft/siloft-networking/protocol"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-pantheon/fabrica-util/errors"
	"github.com/go-pantheon/fabrica-util/xsync"
)

// BaseClient is the transport-agnostic client connection: one dialed socket,
// one worker pair, the protocol registry, and the listener registrations.
// Transport packages wrap it with a concrete Dialer implementation.
type BaseClient struct {
	*client.Options

	name   string
	dialer Dialer

	mu     sync.Mutex
	worker *Worker

	registry atomic.Pointer[protocol.Registry]

	connectedCBs    callbackList[xnet.ClientConnectedListener]
	disconnectedCBs callbackList[xnet.ClientDisconnectedListener]
	receivedCBs     callbackList[xnet.ClientReceivedListener]
}

// NewBaseClient creates an unconnected client. It fails fast with
// ErrInvalidName when name is empty.
func NewBaseClient(name string, dialer Dialer, options *client.Options) (*BaseClient, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	if options == nil {
		options = client.NewOptions()
	}

	return &BaseClient{
		Options: options,
		name:    name,
		dialer:  dialer,
	}, nil
}

// Connect dials the server and starts the receive and transmit workers. It
// is a no-op when already connected. On failure, including a failed TLS
// handshake, no workers are started and the client remains disconnected.
func (c *BaseClient) Connect(ctx context.Context) error {
	c.mu.Lock()

	if c.worker != nil {
		c.mu.Unlock()
		return nil
	}

	cw, err := c.dialer.Dial(ctx)
	if err != nil {
		c.mu.Unlock()
		return errors.Wrapf(err, "client %s connect failed. target=%s", c.name, c.dialer.Target())
	}

	w := NewWorker(cw.ID, cw.Conn, c.Conf().Worker, c.Metrics(), c.handlePacket)
	c.worker = w
	// Listeners may call back into the client, so the lock must be released
	// before they fire.
	c.mu.Unlock()

	xsync.Go(fmt.Sprintf("client.%s.run", c.name), func() error {
		err := w.Run(ctx)
		c.teardown(context.WithoutCancel(ctx), w)

		return err
	})

	c.notifyConnected()

	log.Infof("[client] %s connected to %s", c.name, c.dialer.Target())

	return nil
}

// Disconnect closes the socket and releases the workers and any queued
// outbound packets. It is idempotent.
func (c *BaseClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	w := c.worker
	c.worker = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}

	c.notifyDisconnected()

	if err := w.Stop(ctx); err != nil {
		return err
	}

	log.Infof("[client] %s disconnected", c.name)

	return nil
}

// teardown disconnects after a worker run ends, but only if that worker is
// still the current connection. A newer connection is left untouched.
func (c *BaseClient) teardown(ctx context.Context, w *Worker) {
	c.mu.Lock()

	if c.worker != w {
		c.mu.Unlock()
		return
	}

	c.worker = nil
	c.mu.Unlock()

	c.notifyDisconnected()

	if err := w.Stop(ctx); err != nil {
		log.Debugf("[client] %s stop worker: %+v", c.name, err)
	}
}

func (c *BaseClient) handlePacket(_ uint64, p *xnet.Packet) {
	if p.EOS() {
		// End of stream disconnects; the worker's supervisor handles it.
		return
	}

	if reg := c.registry.Load(); reg != nil {
		for _, m := range reg.Decode(p) {
			c.deliver(m)
		}

		return
	}

	c.deliver(p)
}

func (c *BaseClient) deliver(msg xnet.Message) {
	handler := func(ctx context.Context, req any) (any, error) {
		c.notifyReceived(ctx, req)
		return nil, nil
	}

	if f := c.ReadFilter(); f != nil {
		handler = f(handler)
	}

	if _, err := handler(context.Background(), msg); err != nil {
		log.Errorf("[client] %s deliver: %+v", c.name, err)
	}
}

func (c *BaseClient) notifyReceived(ctx context.Context, msg xnet.Message) {
	guard := recovery.Recovery()

	c.receivedCBs.walk(func(cb xnet.ClientReceivedListener) {
		h := guard(func(ctx context.Context, req any) (any, error) {
			cb(c.name, req)
			return nil, nil
		})

		if _, err := h(ctx, msg); err != nil {
			log.Errorf("[client] %s received listener: %+v", c.name, err)
		}
	})
}

func (c *BaseClient) notifyConnected() {
	guard := recovery.Recovery()

	c.connectedCBs.walk(func(cb xnet.ClientConnectedListener) {
		h := guard(func(ctx context.Context, _ any) (any, error) {
			cb(c.name)
			return nil, nil
		})

		if _, err := h(context.Background(), nil); err != nil {
			log.Errorf("[client] %s connected listener: %+v", c.name, err)
		}
	})
}

func (c *BaseClient) notifyDisconnected() {
	guard := recovery.Recovery()

	c.disconnectedCBs.walk(func(cb xnet.ClientDisconnectedListener) {
		h := guard(func(ctx context.Context, _ any) (any, error) {
			cb(c.name)
			return nil, nil
		})

		if _, err := h(context.Background(), nil); err != nil {
			log.Errorf("[client] %s disconnected listener: %+v", c.name, err)
		}
	})
}

// Transmit appends p to the outbound queue and signals the transmit worker.
// It is a silent no-op when disconnected or p is nil.
func (c *BaseClient) Transmit(p *xnet.Packet) {
	if p == nil {
		return
	}

	c.mu.Lock()
	w := c.worker
	c.mu.Unlock()

	if w == nil {
		return
	}

	w.Enqueue(p)
}

// SetProtocol attaches a protocol registry. When unset, received Packets are
// delivered to listeners unmodified.
func (c *BaseClient) SetProtocol(r *protocol.Registry) {
	c.registry.Store(r)
}

// Protocol returns the attached registry, or nil.
func (c *BaseClient) Protocol() *protocol.Registry {
	return c.registry.Load()
}

func (c *BaseClient) AddConnectedListener(cb xnet.ClientConnectedListener) uint64 {
	return c.connectedCBs.add(cb)
}

func (c *BaseClient) RemoveConnectedListener(token uint64) {
	c.connectedCBs.remove(token)
}

func (c *BaseClient) AddDisconnectedListener(cb xnet.ClientDisconnectedListener) uint64 {
	return c.disconnectedCBs.add(cb)
}

func (c *BaseClient) RemoveDisconnectedListener(token uint64) {
	c.disconnectedCBs.remove(token)
}

func (c *BaseClient) AddReceivedListener(cb xnet.ClientReceivedListener) uint64 {
	return c.receivedCBs.add(cb)
}

func (c *BaseClient) RemoveReceivedListener(token uint64) {
	c.receivedCBs.remove(token)
}

// IsConnected reports whether the socket is dialed, open, and pumping.
func (c *BaseClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.worker != nil && !c.worker.OnStopping()
}

func (c *BaseClient) Name() string {
	return c.name
}

// Port returns the local port of the dialed socket, or 0 when disconnected.
func (c *BaseClient) Port() int {
	if addr := c.LocalAddr(); addr != nil {
		return portOf(addr)
	}

	return 0
}

// LocalAddr returns the local address of the dialed socket, or nil when
// disconnected.
func (c *BaseClient) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker == nil {
		return nil
	}

	return c.worker.Conn().LocalAddr()
}

// ServerAddr returns the remote address of the dialed socket, or nil when
// disconnected.
func (c *BaseClient) ServerAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker == nil {
		return nil
	}

	return c.worker.Conn().RemoteAddr()
}

// Target returns the address this client connects to.
func (c *BaseClient) Target() string {
	return c.dialer.Target()
}
