package tcp

import (
	"context"
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
	ln      *net.TCPListener
	idGener *internal.IDGenerator
}

func newListener(bind string, conf conf.Server) *listener {
	return &listener{
		bind:    bind,
		conf:    conf,
		idGener: internal.NewIDGenerator(internal.NetTypeTCP),
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

func (l *listener) Accept(ctx context.Context) (internal.ConnWrapper, error) {
	conn, err := l.ln.AcceptTCP()
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "accept failed")
	}

	if err := configure(conn, l.conf); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrapf(closeErr, "close tcp connection failed"))
		}

		return internal.ConnWrapper{}, err
	}

	return internal.NewConnWrapper(l.idGener.Next(), conn), nil
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

	return "tcp://" + addr, nil
}
