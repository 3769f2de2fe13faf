// Package tls provides TLS over TCP server and client connections. The
// certificate material is passed explicitly per connection; there is no
// process-wide TLS state.
package tls

import (
	stdtls "crypto/tls"

	"github.com/Siloft/siloft-networking/client"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/Siloft/siloft-networking/internal/util"
	"github.com/Siloft/siloft-networking/server"
)

// Server is a named TLS server connection.
type Server struct {
	*internal.BaseServer
}

// NewServer creates a TLS server bound to bind when started. tlsConf must
// carry at least one certificate or a GetCertificate callback; otherwise
// construction fails with ErrMissingIdentity.
func NewServer(name, bind string, tlsConf *stdtls.Config, opts ...server.Option) (*Server, error) {
	if err := util.ValidateBind(bind); err != nil {
		return nil, err
	}

	if tlsConf == nil || (len(tlsConf.Certificates) == 0 && tlsConf.GetCertificate == nil) {
		return nil, ErrMissingIdentity
	}

	options := server.NewOptions(opts...)

	base, err := internal.NewBaseServer(name, newListener(bind, options.Conf().Server, tlsConf), options)
	if err != nil {
		return nil, err
	}

	return &Server{BaseServer: base}, nil
}

// Client is a named TLS client connection.
type Client struct {
	*internal.BaseClient
}

// NewClient creates a TLS client that connects to target when started. A nil
// tlsConf verifies the server against the system trust store.
func NewClient(name, target string, tlsConf *stdtls.Config, opts ...client.Option) (*Client, error) {
	if err := util.ValidateBind(target); err != nil {
		return nil, err
	}

	options := client.NewOptions(opts...)

	base, err := internal.NewBaseClient(name, newDialer(target, options.Conf().Server, tlsConf), options)
	if err != nil {
		return nil, err
	}

	return &Client{BaseClient: base}, nil
}
