// Package websocket provides WebSocket server and client connections. Each
// outbound packet is sent as one binary frame; inbound frames are treated as
// a byte stream by the shared workers.
package websocket

import (
	"net/url"

	"github.com/Siloft/siloft-networking/client"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/server"
	"github.com/go-pantheon/fabrica-util/errors"
)

// Server is a named WebSocket server connection. The upgrade path and
// allowed origins come from conf.WebSocket.
type Server struct {
	*internal.BaseServer
}

func NewServer(name, bind string, opts ...server.Option) (*Server, error) {
	if err := util.ValidateBind(bind); err != nil {
		return nil, err
	}

	options := server.NewOptions(opts...)

	base, err := internal.NewBaseServer(name, newListener(bind, options.Conf()), options)
	if err != nil {
		return nil, err
	}

	return &Server{BaseServer: base}, nil
}

// Client is a named WebSocket client connection. The target is a ws:// or
// wss:// URL.
type Client struct {
	*internal.BaseClient
}

func NewClient(name, target string, opts ...client.Option) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrapf(util.ErrInvalidBind, "target=%s: %v", target, err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Wrapf(util.ErrInvalidBind, "target=%s: scheme must be ws or wss", target)
	}

	options := client.NewOptions(opts...)

	base, err := internal.NewBaseClient(name, newDialer(target, options.Conf()), options)
	if err != nil {
		return nil, err
	}

	return &Client{BaseClient: base}, nil
}
