package tls

import (
	"context"
	stdtls "crypto/tls"
	"net"

	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/internal"
	"github.com/go-pantheon/fabrica-util/errors"
)

var _ internal.Dialer = (*dialer)(nil)

type dialer struct {
	target  string
	conf    conf.Server
	tlsConf *stdtls.Config
	idGener *internal.IDGenerator
}

func newDialer(target string, c conf.Server, tlsConf *stdtls.Config) *dialer {
	return &dialer{
		target:  target,
		conf:    c,
		tlsConf: tlsConf,
		idGener: internal.NewIDGenerator(internal.NetTypeTLS),
	}
}

// Dial connects and completes the TLS handshake before returning, so a
// refused certificate surfaces as a connect error rather than a later read
// fault.
func (d *dialer) Dial(ctx context.Context) (internal.ConnWrapper, error) {
	nd := stdtls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    d.config(),
	}

	conn, err := nd.DialContext(ctx, "tcp", d.target)
	if err != nil {
		return internal.ConnWrapper{}, errors.Wrapf(err, "tls connect failed. addr=%s", d.target)
	}

	return internal.NewConnWrapper(d.idGener.Next(), conn), nil
}

// config fills in ServerName from the target host when the caller left it
// empty, which most callers do.
func (d *dialer) config() *stdtls.Config {
	c := d.tlsConf
	if c == nil {
		c = &stdtls.Config{MinVersion: stdtls.VersionTLS12}
	}

	if c.ServerName == "" && !c.InsecureSkipVerify {
		if host, _, err := net.SplitHostPort(d.target); err == nil {
			c = c.Clone()
			c.ServerName = host
		}
	}

	return c
}

func (d *dialer) Target() string {
	return d.target
}
