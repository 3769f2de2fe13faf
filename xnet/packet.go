// Package xnet holds the core types shared by every transport: the Packet
// unit, the listener callback signatures, and the message value delivered to
// received listeners.
package xnet

import (
	"github.com/go-pantheon/fabrica-util/errors"
)

// EndOfStreamLength is the sentinel length of a Packet produced by the
// receive path when the peer closed its write side cleanly.
const EndOfStreamLength = -1

// ErrInvalidLength is returned when constructing a Packet whose length
// exceeds the backing buffer.
var ErrInvalidLength = errors.New("invalid packet length")

// Packet is an immutable byte buffer with an explicit valid length. It is the
// base transport-level unit: the receive workers surface raw Packets and the
// transmit queue carries them out.
//
// A Packet must not be mutated after construction. The engine never writes to
// a Packet it was handed, and callers must not modify the data slice they
// passed in.
type Packet struct {
	data   []byte
	length int
}

var endOfStream = &Packet{length: EndOfStreamLength}

// NewPacket constructs a Packet holding data[0:length]. It fails with
// ErrInvalidLength if length is negative or exceeds len(data).
func NewPacket(data []byte, length int) (*Packet, error) {
	if length < 0 || length > len(data) {
		return nil, errors.Wrapf(ErrInvalidLength, "length=%d cap=%d", length, len(data))
	}

	return &Packet{data: data, length: length}, nil
}

// EndOfStream returns the sentinel Packet signaling that the peer closed the
// stream. It is produced only by the receive path and never reaches received
// listeners.
func EndOfStream() *Packet {
	return endOfStream
}

// Data returns the valid portion of the buffer, data[0:length]. It returns
// nil for the end-of-stream sentinel.
func (p *Packet) Data() []byte {
	if p.length < 0 {
		return nil
	}

	return p.data[:p.length]
}

// Length returns the number of valid bytes, or EndOfStreamLength for the
// end-of-stream sentinel.
func (p *Packet) Length() int {
	return p.length
}

// EOS reports whether this Packet is the end-of-stream sentinel.
func (p *Packet) EOS() bool {
	return p.length == EndOfStreamLength
}
