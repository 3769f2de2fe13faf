package tls

import (
	"context"
	stdtls "crypto/tls"
	"net"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/go-pantheon/fabrica-util/errors"
)

var _ internal.Listener = (*listener)(nil)

type listener struct {
	bind    string
	conf    conf.Server
	tlsConf *stdtls.Config
	ln      *net.TCPListener
	idGener *internal.IDGenerator
}

func newListener(bind string, c conf.Server, tlsConf *stdtls.Config) *listener {
	return &listener{
		bind:    bind,
		conf:    c,
		tlsConf: tlsConf,
		idGener: internal.NewIDGenerator(internal.NetTypeTLS),
	}
}

func (l *listener) Start(ctx context.Context) error {
	addr, err := net.ResolveTCPAddr("tcp", l.bind)
	if err != nil {
		return errors.Wrapf(err, "resolve bind failed. bind=%s", l.bind)
	}

	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen failed. addr=%s", addr.String())
	}

	l.ln = ln

	return nil
}

func (l *listener) Stop(ctx context.Context) error {
	if l.ln != nil {
		return l.ln.Close()
	}

	return nil
}

// Accept waits for a TCP connection and completes the TLS handshake before
// handing the socket over. A failed handshake closes the socket and surfaces
// as a transient accept fault, leaving the listener running.
func (l *listener) Accept(ctx context.Context) (internal.ConnWrapper, error) {
	raw, err := l.ln.AcceptTCP()
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "accept failed")
	}

	conn, err := l.handshake(ctx, raw)
	if err != nil {
		if closeErr := raw.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrapf(closeErr, "close tcp connection failed"))
		}

		return internal.ConnWrapper{}, err
	}

	return internal.NewConnWrapper(l.idGener.Next(), conn), nil
}

func (l *listener) handshake(ctx context.Context, raw *net.TCPConn) (*stdtls.Conn, error) {
	if err := configure(raw, l.conf); err != nil {
		return nil, err
	}

	conn := stdtls.Server(raw, l.tlsConf)

	if timeout := l.conf.HandshakeTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "tls handshake failed. remote=%s", raw.RemoteAddr())
	}

	return conn, nil
}

func configure(conn *net.TCPConn, c conf.Server) error {
	if err := conn.SetKeepAlive(c.KeepAlive); err != nil {
		return errors.Wrapf(err, "SetKeepAlive failed v=%v", c.KeepAlive)
	}

	if err := conn.SetReadBuffer(c.ReadBufSize); err != nil {
		return errors.Wrapf(err, "SetReadBuffer failed v=%d", c.ReadBufSize)
	}

	if err := conn.SetWriteBuffer(c.WriteBufSize); err != nil {
		return errors.Wrapf(err, "SetWriteBuffer failed v=%d", c.WriteBufSize)
	}

	return nil
}

func (l *listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}

	return l.ln.Addr()
}

func (l *listener) Endpoint() (string, error) {
	addr, err := util.Extract(l.bind, l.ln)
	if err != nil {
		return "", err
	}

	return "tls://" + addr, nil
}
