package protocol

// FieldType tags the wire representation of one schema field. All multi-byte
// numeric fields are big-endian; String and Bytes are 1-byte-length-prefixed
// with a 255 byte maximum.
type FieldType uint8

const (
	Int8 FieldType = iota + 1
	Int16
	Int32
	Int64
	Float32
	Float64
	Bool
	String
	Bytes
)

func (t FieldType) String() string {
	switch t {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// fixedSize returns the encoded size of a fixed-width type, or 0 for the
// variable-length types.
func (t FieldType) fixedSize() int {
	switch t {
	case Int8, Bool:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// field is one entry of a schema descriptor: a name for diagnostics, a wire
// type tag, and the accessor pair bridging the wire value to the message
// struct. Accessors move values as the concrete Go type matching the tag.
type field struct {
	name string
	typ  FieldType
	get  func(m Message) any
	set  func(m Message, v any)
}
