// Package tcp provides plain TCP server and client connections.
package tcp

import (
	"github.com/Siloft/siloft-networking/client"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/server"
)

// Server is a named TCP server connection. Zero value is not usable; create
// one with NewServer.
type Server struct {
	*internal.BaseServer
}

// NewServer creates a TCP server bound to bind when started. The name
// identifies the connection in listener callbacks and must not be empty.
func NewServer(name, bind string, opts ...server.Option) (*Server, error) {
	if err := util.ValidateBind(bind); err != nil {
		return nil, err
	}

	options := server.NewOptions(opts...)

	base, err := internal.NewBaseServer(name, newListener(bind, options.Conf().Server), options)
	if err != nil {
		return nil, err
	}

	return &Server{BaseServer: base}, nil
}

// Client is a named TCP client connection. Zero value is not usable; create
// one with NewClient.
type Client struct {
	*internal.BaseClient
}

// NewClient creates a TCP client that connects to target when started. The
// name identifies the connection in listener callbacks and must not be empty.
func NewClient(name, target string, opts ...client.Option) (*Client, error) {
	if err := util.ValidateBind(target); err != nil {
		return nil, err
	}

	options := client.NewOptions(opts...)

	base, err := internal.NewBaseClient(name, newDialer(target, options.Conf().Server), options)
	if err != nil {
		return nil, err
	}

	return &Client{BaseClient: base}, nil
}
