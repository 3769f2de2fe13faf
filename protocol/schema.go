// Package protocol implements the schema-driven binary message codec. A
// Schema is an explicit, ordered field descriptor for one message type; a
// Registry aggregates schemas and demultiplexes raw byte streams into typed
// messages.
//
// The wire format of a message is [opcode:2][field1][field2]..., with no
// padding and no end-of-message marker: a message's wire length is fully
// determined by its schema.
package protocol

import (
	"encoding/binary"
	"math"

	"github.com/go-pantheon/fabrica-util/errors"
)

// MaxVarLen is the maximum encoded length of a String or Bytes field, imposed
// by the 1-byte length prefix.
const MaxVarLen = 255

// opcodeSize is the width of the discriminant that opens every message.
const opcodeSize = 2

// ErrFieldTooLong is returned by Encode when a String or Bytes field exceeds
// MaxVarLen.
var ErrFieldTooLong = errors.New("variable-length field exceeds 255 bytes")

// Message is implemented by typed protocol messages. A message declares its
// schema once; all encoding and decoding flows through the descriptor.
type Message interface {
	Schema() *Schema
}

// Schema is the ordered field descriptor of one message type. The 16-bit
// opcode is always the first encoded field and is fixed at construction.
//
// Schemas are built once at startup with the typed builder methods and must
// not be modified after registration:
//
//	var pingSchema = protocol.NewSchema(0x0001, func() protocol.Message { return new(Ping) }).
//		Int64("seq",
//			func(m protocol.Message) int64 { return m.(*Ping).Seq },
//			func(m protocol.Message, v int64) { m.(*Ping).Seq = v })
type Schema struct {
	opcode  uint16
	factory func() Message
	fields  []field
}

// NewSchema creates a schema for the message type produced by factory,
// discriminated by opcode.
func NewSchema(opcode uint16, factory func() Message) *Schema {
	return &Schema{
		opcode:  opcode,
		factory: factory,
	}
}

// Opcode returns the schema's 16-bit discriminant.
func (s *Schema) Opcode() uint16 {
	return s.opcode
}

func (s *Schema) add(name string, typ FieldType, get func(Message) any, set func(Message, any)) *Schema {
	s.fields = append(s.fields, field{name: name, typ: typ, get: get, set: set})
	return s
}

// Int8 appends an 8-bit integer field.
func (s *Schema) Int8(name string, get func(Message) int8, set func(Message, int8)) *Schema {
	return s.add(name, Int8,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(int8)) })
}

// Int16 appends a 16-bit integer field.
func (s *Schema) Int16(name string, get func(Message) int16, set func(Message, int16)) *Schema {
	return s.add(name, Int16,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(int16)) })
}

// Int32 appends a 32-bit integer field.
func (s *Schema) Int32(name string, get func(Message) int32, set func(Message, int32)) *Schema {
	return s.add(name, Int32,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(int32)) })
}

// Int64 appends a 64-bit integer field.
func (s *Schema) Int64(name string, get func(Message) int64, set func(Message, int64)) *Schema {
	return s.add(name, Int64,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(int64)) })
}

// Float32 appends a 32-bit float field.
func (s *Schema) Float32(name string, get func(Message) float32, set func(Message, float32)) *Schema {
	return s.add(name, Float32,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(float32)) })
}

// Float64 appends a 64-bit float field.
func (s *Schema) Float64(name string, get func(Message) float64, set func(Message, float64)) *Schema {
	return s.add(name, Float64,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(float64)) })
}

// Bool appends a 1-byte boolean field; 1 encodes true, 0 encodes false, any
// other byte is invalid input on decode.
func (s *Schema) Bool(name string, get func(Message) bool, set func(Message, bool)) *Schema {
	return s.add(name, Bool,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(bool)) })
}

// String appends a length-prefixed UTF-8 string field (max 255 bytes).
func (s *Schema) String(name string, get func(Message) string, set func(Message, string)) *Schema {
	return s.add(name, String,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.(string)) })
}

// Bytes appends a length-prefixed raw bytes field (max 255 bytes).
func (s *Schema) Bytes(name string, get func(Message) []byte, set func(Message, []byte)) *Schema {
	return s.add(name, Bytes,
		func(m Message) any { return get(m) },
		func(m Message, v any) { set(m, v.([]byte)) })
}

// EncodedSize returns the wire length of m: the opcode plus the sum of the
// per-field encoded sizes. It is computed, never stored on the wire.
func (s *Schema) EncodedSize(m Message) int {
	size := opcodeSize

	for _, f := range s.fields {
		if n := f.typ.fixedSize(); n > 0 {
			size += n
			continue
		}

		switch f.typ {
		case String:
			size += 1 + len(f.get(m).(string))
		case Bytes:
			size += 1 + len(f.get(m).([]byte))
		}
	}

	return size
}

// Encode serializes m: opcode first, then each field in declaration order,
// big-endian. It fails with ErrFieldTooLong if a variable-length field
// exceeds 255 bytes.
func (s *Schema) Encode(m Message) ([]byte, error) {
	buf := make([]byte, 0, s.EncodedSize(m))
	buf = binary.BigEndian.AppendUint16(buf, s.opcode)

	for _, f := range s.fields {
		var err error
		if buf, err = appendField(buf, f, m); err != nil {
			return nil, errors.Wrapf(err, "field=%s", f.name)
		}
	}

	return buf, nil
}

func appendField(buf []byte, f field, m Message) ([]byte, error) {
	switch f.typ {
	case Int8:
		return append(buf, byte(f.get(m).(int8))), nil
	case Int16:
		return binary.BigEndian.AppendUint16(buf, uint16(f.get(m).(int16))), nil
	case Int32:
		return binary.BigEndian.AppendUint32(buf, uint32(f.get(m).(int32))), nil
	case Int64:
		return binary.BigEndian.AppendUint64(buf, uint64(f.get(m).(int64))), nil
	case Float32:
		return binary.BigEndian.AppendUint32(buf, math.Float32bits(f.get(m).(float32))), nil
	case Float64:
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(f.get(m).(float64))), nil
	case Bool:
		if f.get(m).(bool) {
			return append(buf, 1), nil
		}

		return append(buf, 0), nil
	case String:
		v := f.get(m).(string)
		if len(v) > MaxVarLen {
			return nil, ErrFieldTooLong
		}

		buf = append(buf, byte(len(v)))

		return append(buf, v...), nil
	case Bytes:
		v := f.get(m).([]byte)
		if len(v) > MaxVarLen {
			return nil, ErrFieldTooLong
		}

		buf = append(buf, byte(len(v)))

		return append(buf, v...), nil
	default:
		return nil, errors.New("unknown field type")
	}
}

// Decode attempts to read one message of this schema from the head of data.
// It returns the populated message and the number of bytes consumed, or
// ok=false when the discriminant does not match or any field's required bytes
// exceed the remaining length. A variable-length field with encoded length 0
// yields an empty value, not a failure.
func (s *Schema) Decode(data []byte) (m Message, n int, ok bool) {
	if len(data) < opcodeSize {
		return nil, 0, false
	}

	if binary.BigEndian.Uint16(data) != s.opcode {
		return nil, 0, false
	}

	m = s.factory()
	n = opcodeSize

	for _, f := range s.fields {
		consumed, ok := readField(data[n:], f, m)
		if !ok {
			return nil, 0, false
		}

		n += consumed
	}

	return m, n, true
}

func readField(data []byte, f field, m Message) (n int, ok bool) {
	if size := f.typ.fixedSize(); size > 0 && len(data) < size {
		return 0, false
	}

	switch f.typ {
	case Int8:
		f.set(m, int8(data[0]))
		return 1, true
	case Int16:
		f.set(m, int16(binary.BigEndian.Uint16(data)))
		return 2, true
	case Int32:
		f.set(m, int32(binary.BigEndian.Uint32(data)))
		return 4, true
	case Int64:
		f.set(m, int64(binary.BigEndian.Uint64(data)))
		return 8, true
	case Float32:
		f.set(m, math.Float32frombits(binary.BigEndian.Uint32(data)))
		return 4, true
	case Float64:
		f.set(m, math.Float64frombits(binary.BigEndian.Uint64(data)))
		return 8, true
	case Bool:
		switch data[0] {
		case 0:
			f.set(m, false)
		case 1:
			f.set(m, true)
		default:
			return 0, false
		}

		return 1, true
	case String:
		v, n, ok := readVar(data)
		if !ok {
			return 0, false
		}

		f.set(m, string(v))

		return n, true
	case Bytes:
		v, n, ok := readVar(data)
		if !ok {
			return 0, false
		}

		buf := make([]byte, len(v))
		copy(buf, v)
		f.set(m, buf)

		return n, true
	default:
		return 0, false
	}
}

func readVar(data []byte) (v []byte, n int, ok bool) {
	if len(data) < 1 {
		return nil, 0, false
	}

	size := int(data[0])
	if len(data)-1 < size {
		return nil, 0, false
	}

	return data[1 : 1+size], 1 + size, true
}
