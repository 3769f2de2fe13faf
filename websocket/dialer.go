package websocket

import (
	"context"
	"net/url"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/websocket/wsconn"
	"github.com/go-pantheon/fabrica-util/errors"
	"github.com/gorilla/websocket"
)

var _ internal.Dialer = (*dialer)(nil)

type dialer struct {
	target  string
	dialer  *websocket.Dialer
	idGener *internal.IDGenerator
}

func newDialer(target string, c conf.Config) *dialer {
	return &dialer{
		target: target,
		dialer: &websocket.Dialer{
			ReadBufferSize:   c.Server.ReadBufSize,
			WriteBufferSize:  c.Server.WriteBufSize,
			HandshakeTimeout: c.Server.HandshakeTimeout.Std(),
		},
		idGener: internal.NewIDGenerator(internal.NetTypeWebSocket),
	}
}

func (d *dialer) Dial(ctx context.Context) (internal.ConnWrapper, error) {
	u, err := url.Parse(d.target)
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "parse url failed. url=%s", d.target)
	}

	conn, resp, err := d.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "connect failed. url=%s", d.target)
	}

	if resp != nil && resp.Body != nil {
		if err := resp.Body.Close(); err != nil {
			return internal.ConnWrapper{}, errors.Wrapf(err, "close response body failed")
		}
	}

	return internal.NewConnWrapper(d.idGener.Next(), wsconn.New(conn)), nil
}

func (d *dialer) Target() string {
	return d.target
}
