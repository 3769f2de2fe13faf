package xnet

// Message is a value delivered to received listeners. Without a protocol
// registry attached to the connection it is always a *Packet; with a registry
// attached it is the typed message decoded by the matching schema.
type Message any

// ConnectedListener is notified when a server accepts a new peer connection.
type ConnectedListener func(name string, id uint64)

// DisconnectedListener is notified when a peer connection is torn down, for
// any reason: explicit disconnect, receive or transmit failure, or the peer
// closing its write side.
type DisconnectedListener func(name string, id uint64)

// ReceivedListener is notified for every message read and demultiplexed on a
// server-side peer connection, in the order the bytes arrived.
type ReceivedListener func(name string, id uint64, msg Message)

// ClientConnectedListener is notified when a client connection is
// established. Clients own a single connection, so no id is carried.
type ClientConnectedListener func(name string)

// ClientDisconnectedListener is notified when a client connection is torn
// down.
type ClientDisconnectedListener func(name string)

// ClientReceivedListener is notified for every message read and
// demultiplexed on a client connection.
type ClientReceivedListener func(name string, msg Message)
