package protocol

import (
	"sync"

	"github.com/Siloft/siloft-networking/xnet"
	"github.com/go-pantheon/fabrica-util/errors"
)

// ErrDuplicateOpcode is returned when registering a schema whose opcode is
// already taken in the registry.
var ErrDuplicateOpcode = errors.New("duplicate opcode")

// ErrNilMessage is returned by Encode when the message or its schema is nil.
var ErrNilMessage = errors.New("nil message")

// Registry aggregates message schemas and demultiplexes raw packets into
// typed messages. Registration order is the order schemas are tried against
// the byte stream.
type Registry struct {
	mu      sync.RWMutex
	schemas []*Schema
	opcodes map[uint16]struct{}
}

// NewRegistry creates a registry and registers the given schemas in order.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{
		opcodes: make(map[uint16]struct{}, len(schemas)),
	}

	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a schema. It fails with ErrDuplicateOpcode if another
// registered schema already claims the same discriminant.
func (r *Registry) Register(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.opcodes[s.opcode]; taken {
		return errors.Wrapf(ErrDuplicateOpcode, "opcode=%#04x", s.opcode)
	}

	r.opcodes[s.opcode] = struct{}{}
	r.schemas = append(r.schemas, s)

	return nil
}

// Decode carves zero or more typed messages out of p. A cursor walks the
// packet's valid bytes; at each position every registered schema is tried in
// registration order, and the first whose discriminant matches and whose
// fields all fit is accepted. Decoding stops at the first position where no
// schema matches; unconsumed trailing bytes are silently dropped, so callers
// only ever receive whole messages.
func (r *Registry) Decode(p *xnet.Packet) []Message {
	msgs := make([]Message, 0, 4)

	if p == nil || p.Length() <= 0 {
		return msgs
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data := p.Data()
	cursor := 0

	for cursor < len(data) {
		matched := false

		for _, s := range r.schemas {
			m, n, ok := s.Decode(data[cursor:])
			if !ok {
				continue
			}

			msgs = append(msgs, m)
			cursor += n
			matched = true

			break
		}

		if !matched {
			break
		}
	}

	return msgs
}

// Encode serializes m into a transmit-ready Packet.
func (r *Registry) Encode(m Message) (*xnet.Packet, error) {
	if m == nil || m.Schema() == nil {
		return nil, ErrNilMessage
	}

	data, err := m.Schema().Encode(m)
	if err != nil {
		return nil, err
	}

	return xnet.NewPacket(data, len(data))
}
