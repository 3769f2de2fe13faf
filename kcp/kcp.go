// Package kcp provides KCP server and client connections, a reliable
// stream over UDP for latency-sensitive links.
package kcp

import (
	"github.com/Siloft/siloft-networking/client"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/server"
)

// Server is a named KCP server connection.
type Server struct {
	*internal.BaseServer
}

func NewServer(name, bind string, opts ...server.Option) (*Server, error) {
	if err := util.ValidateBind(bind); err != nil {
		return nil, err
	}

	options := server.NewOptions(opts...)

	if err := validate(options.Conf().KCP); err != nil {
		return nil, err
	}

	base, err := internal.NewBaseServer(name, newListener(bind, options.Conf()), options)
	if err != nil {
		return nil, err
	}

	return &Server{BaseServer: base}, nil
}

// Client is a named KCP client connection.
type Client struct {
	*internal.BaseClient
}

func NewClient(name, target string, opts ...client.Option) (*Client, error) {
	if err := util.ValidateBind(target); err != nil {
		return nil, err
	}

	options := client.NewOptions(opts...)

	if err := validate(options.Conf().KCP); err != nil {
		return nil, err
	}

	base, err := internal.NewBaseClient(name, newDialer(target, options.Conf().KCP), options)
	if err != nil {
		return nil, err
	}

	return &Client{BaseClient: base}, nil
}
