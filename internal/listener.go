package internal

import (
	"context"
	"net"
)

// Listener is the transport-specific half of a server: it owns the listening
// socket and yields accepted peer connections. Implementations perform any
// transport handshake (TLS, WebSocket upgrade) inside Accept so a handshake
// failure surfaces as a transient accept fault.
type Listener interface {
	// Start binds the listening socket.
	Start(ctx context.Context) error

	// Stop closes the listening socket, unblocking a pending Accept.
	Stop(ctx context.Context) error

	// Accept blocks until the next inbound connection is ready.
	Accept(ctx context.Context) (ConnWrapper, error)

	// Addr returns the bound local address, or nil before Start.
	Addr() net.Addr

	// Endpoint returns the advertisable endpoint URL for this listener.
	Endpoint() (string, error)
}

// Dialer is the transport-specific half of a client: it opens one outbound
// connection, performing any transport handshake synchronously.
type Dialer interface {
	// Dial establishes the connection to the target.
	Dial(ctx context.Context) (ConnWrapper, error)

	// Target returns the remote address this dialer connects to.
	Target() string
}
