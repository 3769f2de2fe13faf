package tls

import (
	stdtls "crypto/tls"
	"crypto/x509"
	"os"

	"github.com/go-pantheon/fabrica-util/errors"
)

// ErrMissingIdentity reports a TLS server constructed without a certificate.
// A server cannot complete a handshake without one, so construction fails
// instead of the first accept.
var ErrMissingIdentity = errors.New("tls server requires a certificate")

// LoadServerConfig builds a server TLS config from a PEM certificate and key
// file pair.
func LoadServerConfig(certFile, keyFile string) (*stdtls.Config, error) {
	cert, err := stdtls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load key pair failed. cert=%s key=%s", certFile, keyFile)
	}

	return &stdtls.Config{
		Certificates: []stdtls.Certificate{cert},
		MinVersion:   stdtls.VersionTLS12,
	}, nil
}

// LoadClientConfig builds a client TLS config trusting the PEM roots in
// caFile and verifying the peer as serverName. An empty caFile keeps the
// system trust store.
func LoadClientConfig(caFile, serverName string) (*stdtls.Config, error) {
	c := &stdtls.Config{
		ServerName: serverName,
		MinVersion: stdtls.VersionTLS12,
	}

	if caFile == "" {
		return c, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read ca file failed. ca=%s", caFile)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Errorf("no certificates found in ca file. ca=%s", caFile)
	}

	c.RootCAs = pool

	return c, nil
}
