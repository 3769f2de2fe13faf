package internal

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/metrics"
	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-pantheon/fabrica-util/errors"
	"github.com/go-pantheon/fabrica-util/xsync"
	"golang.org/x/sync/errgroup"
)

// errEndOfStream ends a worker's run when the peer closed its write side
// cleanly. It is an orderly shutdown, not a fault.
var errEndOfStream = errors.New("end of stream")

// Worker is the I/O pump of one connection: a receive goroutine performing
// one blocking read per iteration and a level-triggered transmit goroutine
// draining the outbound queue. Neither blocks the caller of Enqueue or of
// the owning connection's operations.
type Worker struct {
	xsync.Stoppable

	id   uint64
	conn net.Conn
	conf conf.Worker

	queue  *transmitQueue
	signal chan struct{}

	// onPacket surfaces every raw received Packet, including the
	// end-of-stream sentinel, to the owning connection.
	onPacket func(id uint64, p *xnet.Packet)

	// disconnected marks that the owner has fired disconnected listeners
	// for this connection.
	disconnected atomic.Bool

	metrics *metrics.Metrics
}

func NewWorker(id uint64, conn net.Conn, c conf.Worker, m *metrics.Metrics, onPacket func(uint64, *xnet.Packet)) *Worker {
	return &Worker{
		Stoppable: xsync.NewStopper(c.StopTimeout.Std()),
		id:        id,
		conn:      conn,
		conf:      c,
		queue:     newTransmitQueue(),
		signal:    make(chan struct{}, 1),
		onPacket:  onPacket,
		metrics:   m,
	}
}

// Run pumps the connection until a loop fails, the peer closes the stream,
// the context is canceled, or the worker is stopped. It always returns a
// non-nil reason; the owner tears the connection down when it does.
func (w *Worker) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	// A canceled context must unblock the read parked in receive.
	util.SetDeadlineWithContext(ctx, w.conn, fmt.Sprintf("worker-%d", w.id))

	eg.Go(func() error {
		select {
		case <-w.StopTriggered():
			return xsync.ErrStopByTrigger
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	eg.Go(func() error {
		return xsync.Run(func() error {
			return w.receiveLoop(ctx)
		})
	})
	eg.Go(func() error {
		return xsync.Run(func() error {
			return w.transmitLoop(ctx)
		})
	})

	err := eg.Wait()
	if errors.Is(err, errEndOfStream) {
		return nil
	}

	return err
}

func (w *Worker) receiveLoop(ctx context.Context) error {
	buf := make([]byte, w.conf.ReadBufSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := w.receive(buf); err != nil {
				return err
			}
		}
	}
}

// receive performs exactly one blocking read. A read may return fewer or
// more bytes than one protocol message; framing is the codec's job.
func (w *Worker) receive(buf []byte) error {
	if timeout := w.conf.ReadTimeout.Std(); timeout > 0 {
		if err := w.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return errors.Wrap(err, "set read deadline failed")
		}
	}

	n, err := w.conn.Read(buf)

	if n > 0 {
		data := make([]byte, n)
		copy(data, buf[:n])

		pkt, pktErr := xnet.NewPacket(data, n)
		if pktErr != nil {
			return pktErr
		}

		w.metrics.PacketReceived(n)
		w.onPacket(w.id, pkt)
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			w.onPacket(w.id, xnet.EndOfStream())
			return errEndOfStream
		}

		return errors.Wrap(err, "read failed")
	}

	return nil
}

func (w *Worker) transmitLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.StopTriggered():
			return xsync.ErrStopByTrigger
		case <-w.signal:
			if err := w.drain(ctx); err != nil {
				return err
			}
		}
	}
}

// drain writes one snapshot of the queue in FIFO order, removing each packet
// from the live queue immediately after it is fully written. Packets
// enqueued during the batch stay queued; a non-empty queue at batch end
// re-triggers the worker.
func (w *Worker) drain(ctx context.Context) error {
	batch := w.queue.snapshot()

	for _, p := range batch {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.StopTriggered():
			return xsync.ErrStopByTrigger
		default:
		}

		if err := w.write(p); err != nil {
			return err
		}

		w.queue.remove(p)
		w.metrics.PacketSent(p.Length())
	}

	if w.queue.len() > 0 {
		w.wake()
	}

	return nil
}

func (w *Worker) write(p *xnet.Packet) error {
	if timeout := w.conf.WriteTimeout.Std(); timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return errors.Wrap(err, "set write deadline failed")
		}
	}

	data := p.Data()

	for len(data) > 0 {
		n, err := w.conn.Write(data)
		if err != nil {
			return errors.Wrap(err, "write failed")
		}

		data = data[n:]
	}

	return nil
}

// Enqueue appends p to the outbound queue and signals the transmit worker to
// run if idle. It never blocks.
func (w *Worker) Enqueue(p *xnet.Packet) {
	if w.OnStopping() {
		return
	}

	w.queue.enqueue(p)
	w.wake()
}

func (w *Worker) wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// QueueLen reports the number of packets still waiting to be written.
func (w *Worker) QueueLen() int {
	return w.queue.len()
}

// Stop closes the socket and halts both loops. Packets not yet written stay
// in the queue and are discarded together with the worker.
func (w *Worker) Stop(ctx context.Context) error {
	return w.TurnOff(func() error {
		return w.conn.Close()
	})
}

// claimDisconnect returns true exactly once per worker; the caller that wins
// the claim fires the disconnected listeners.
func (w *Worker) claimDisconnect() bool {
	return !w.disconnected.Swap(true)
}

func (w *Worker) ID() uint64 {
	return w.id
}

func (w *Worker) Conn() net.Conn {
	return w.conn
}

func (w *Worker) Endpoint() string {
	if w.conn == nil {
		return ""
	}

	return w.conn.RemoteAddr().String()
}
