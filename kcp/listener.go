package kcp

import (
	"context"
	"net"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/go-pantheon/fabrica-util/errors"
	kcpgo "github.com/xtaci/kcp-go/v5"
)

var _ internal.Listener = (*listener)(nil)

type listener struct {
	bind    string
	conf    conf.Config
	ln      *kcpgo.Listener
	idGener *internal.IDGenerator
}

func newListener(bind string, c conf.Config) *listener {
	return &listener{
		bind:    bind,
		conf:    c,
		idGener: internal.NewIDGenerator(internal.NetTypeKCP),
	}
}

func (l *listener) Start(ctx context.Context) error {
	ln, err := kcpgo.ListenWithOptions(l.bind, nil, l.conf.KCP.DataShards, l.conf.KCP.ParityShards)
	if err != nil {
		return errors.Wrapf(err, "kcp listen failed. bind=%s", l.bind)
	}

	if err := ln.SetReadBuffer(l.conf.Server.ReadBufSize); err != nil {
		return errors.Join(errors.Wrap(err, "set read buffer failed"), ln.Close())
	}

	if err := ln.SetWriteBuffer(l.conf.Server.WriteBufSize); err != nil {
		return errors.Join(errors.Wrap(err, "set write buffer failed"), ln.Close())
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
	conn, err := l.ln.AcceptKCP()
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "accept kcp failed")
	}

	configure(conn, l.conf.KCP)

	return internal.NewConnWrapper(l.idGener.Next(), conn), nil
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

	return "kcp://" + addr, nil
}
