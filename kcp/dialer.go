package kcp

import (
	"context"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/go-pantheon/fabrica-util/errors"
	kcpgo "github.com/xtaci/kcp-go/v5"
)

var _ internal.Dialer = (*dialer)(nil)

type dialer struct {
	target  string
	conf    conf.KCP
	idGener *internal.IDGenerator
}

func newDialer(target string, c conf.KCP) *dialer {
	return &dialer{
		target:  target,
		conf:    c,
		idGener: internal.NewIDGenerator(internal.NetTypeKCP),
	}
}

func (d *dialer) Dial(ctx context.Context) (internal.ConnWrapper, error) {
	conn, err := kcpgo.DialWithOptions(d.target, nil, d.conf.DataShards, d.conf.ParityShards)
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "kcp dial failed. target=%s", d.target)
	}

	configure(conn, d.conf)

	return internal.NewConnWrapper(d.idGener.Next(), conn), nil
}

func (d *dialer) Target() string {
	return d.target
}
