package internal

import (
	"net"
	"sync/atomic"
)

// Transport tags mixed into generated connection ids, so an id also reveals
// which listener produced it.
const (
	NetTypeTCP = iota
	NetTypeTLS
	NetTypeWebSocket
	NetTypeKCP
)

// ConnWrapper carries an accepted or dialed socket together with the
// connection id assigned by its listener or dialer.
type ConnWrapper struct {
	ID   uint64
	Conn net.Conn
}

func NewConnWrapper(id uint64, conn net.Conn) ConnWrapper {
	return ConnWrapper{
		ID:   id,
		Conn: conn,
	}
}

// IDGenerator produces connection ids unique among concurrently open peers of
// one server. Ids are opaque: stability across reconnects is not guaranteed.
type IDGenerator struct {
	counter *atomic.Uint64
	netType int
}

func NewIDGenerator(netType int) *IDGenerator {
	return &IDGenerator{
		counter: &atomic.Uint64{},
		netType: netType,
	}
}

func (g *IDGenerator) Next() uint64 {
	return g.counter.Add(1)<<4 | uint64(g.netType)
}
