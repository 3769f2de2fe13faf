// Package wsconn adapts a gorilla websocket connection to net.Conn so the
// shared connection workers can pump it like any stream socket.
package wsconn

import (
	"io"
	"net"
	"time"

	"github.com/go-pantheon/fabrica-util/errors"
	"github.com/gorilla/websocket"
)

// ErrInvalidFrameType reports a text frame on a connection that carries
// binary packets only.
var ErrInvalidFrameType = errors.New("invalid frame type")

var _ net.Conn = (*Conn)(nil)

// Conn presents one websocket connection as a byte stream. Each Write sends
// one binary frame; Read drains the current frame across as many calls as it
// takes before advancing to the next one.
type Conn struct {
	conn *websocket.Conn

	// frame is the reader of the partially consumed inbound frame, nil
	// between frames. Only the receive goroutine touches it.
	frame io.Reader
}

func New(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

func (c *Conn) Read(b []byte) (int, error) {
	for {
		if c.frame == nil {
			mt, r, err := c.conn.NextReader()
			if err != nil {
				// A close frame is the websocket spelling of end of stream.
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}

				return 0, err
			}

			if mt != websocket.BinaryMessage {
				return 0, ErrInvalidFrameType
			}

			c.frame = r
		}

		n, err := c.frame.Read(b)
		if errors.Is(err, io.EOF) {
			// Frame end is not stream end.
			c.frame = nil

			if n == 0 {
				continue
			}

			err = nil
		}

		return n, err
	}
}

func (c *Conn) Write(b []byte) (n int, err error) {
	w, err := c.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return 0, err
	}

	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return w.Write(b)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}

	return c.conn.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
