package tcp

import (
	"context"
	"net"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/go-pantheon/fabrica-util/errors"
)

var _ internal.Dialer = (*dialer)(nil)

type dialer struct {
	target  string
	conf    conf.Server
	idGener *internal.IDGenerator
}

func newDialer(target string, conf conf.Server) *dialer {
	return &dialer{
		target:  target,
		conf:    conf,
		idGener: internal.NewIDGenerator(internal.NetTypeTCP),
	}
}

func (d *dialer) Dial(ctx context.Context) (internal.ConnWrapper, error) {
	var nd net.Dialer

	conn, err := nd.DialContext(ctx, "tcp", d.target)
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "connect failed. addr=%s", d.target)
	}

	if err := configure(conn.(*net.TCPConn), d.conf); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrapf(closeErr, "close tcp connection failed"))
		}

		return internal.ConnWrapper{}, err
	}

	return internal.NewConnWrapper(d.idGener.Next(), conn), nil
}

func (d *dialer) Target() string {
	return d.target
}
