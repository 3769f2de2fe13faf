package protocol

import (
	"testing"

	"github.com/Siloft/siloft-networking/xnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Seq   int64
	Prio  int8
	Reply bool
}

var pingSchema = NewSchema(0x0001, func() Message { return new(ping) }).
	Int64("seq",
		func(m Message) int64 { return m.(*ping).Seq },
		func(m Message, v int64) { m.(*ping).Seq = v }).
	Int8("prio",
		func(m Message) int8 { return m.(*ping).Prio },
		func(m Message, v int8) { m.(*ping).Prio = v }).
	Bool("reply",
		func(m Message) bool { return m.(*ping).Reply },
		func(m Message, v bool) { m.(*ping).Reply = v })

func (p *ping) Schema() *Schema { return pingSchema }

type hello struct {
	Who  string
	Blob []byte
}

var helloSchema = NewSchema(0x0002, func() Message { return new(hello) }).
	String("who",
		func(m Message) string { return m.(*hello).Who },
		func(m Message, v string) { m.(*hello).Who = v }).
	Bytes("blob",
		func(m Message) []byte { return m.(*hello).Blob },
		func(m Message, v []byte) { m.(*hello).Blob = v })

func (h *hello) Schema() *Schema { return helloSchema }

type reading struct {
	Station int16
	Count   int32
	Temp    float32
	Avg     float64
}

var readingSchema = NewSchema(0x0003, func() Message { return new(reading) }).
	Int16("station",
		func(m Message) int16 { return m.(*reading).Station },
		func(m Message, v int16) { m.(*reading).Station = v }).
	Int32("count",
		func(m Message) int32 { return m.(*reading).Count },
		func(m Message, v int32) { m.(*reading).Count = v }).
	Float32("temp",
		func(m Message) float32 { return m.(*reading).Temp },
		func(m Message, v float32) { m.(*reading).Temp = v }).
	Float64("avg",
		func(m Message) float64 { return m.(*reading).Avg },
		func(m Message, v float64) { m.(*reading).Avg = v })

func (r *reading) Schema() *Schema { return readingSchema }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := NewRegistry(pingSchema, helloSchema, readingSchema)
	require.NoError(t, err)

	return r
}

func TestRegisterDuplicateOpcode(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(pingSchema)
	require.NoError(t, err)

	dup := NewSchema(0x0001, func() Message { return new(ping) })
	assert.ErrorIs(t, r.Register(dup), ErrDuplicateOpcode)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "ping",
			msg:  &ping{Seq: -42, Prio: 7, Reply: true},
		},
		{
			name: "hello",
			msg:  &hello{Who: "Siloft", Blob: []byte{0xDE, 0xAD}},
		},
		{
			name: "hello empty fields",
			msg:  &hello{Who: "", Blob: []byte{}},
		},
		{
			name: "reading",
			msg:  &reading{Station: -1, Count: 1 << 20, Temp: 21.5, Avg: -273.15},
		},
	}

	r := newTestRegistry(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pkt, err := r.Encode(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.Schema().EncodedSize(tt.msg), pkt.Length())

			msgs := r.Decode(pkt)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.msg, msgs[0])
		})
	}
}

func TestStringFieldLayout(t *testing.T) {
	t.Parallel()

	// "Siloft" must serialize as a 1-byte length prefix followed by the raw
	// UTF-8 bytes.
	data, err := helloSchema.Encode(&hello{Who: "Siloft"})
	require.NoError(t, err)

	want := []byte{0x00, 0x02, 0x06, 'S', 'i', 'l', 'o', 'f', 't', 0x00}
	assert.Equal(t, want, data)

	m, n, ok := helloSchema.Decode(data)
	require.True(t, ok)
	assert.Equal(t, len(data), n)
	assert.Equal(t, "Siloft", m.(*hello).Who)
}

func TestDecodeMultiplexed(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	in := []Message{
		&ping{Seq: 1, Reply: true},
		&hello{Who: "a"},
		&ping{Seq: 2},
		&reading{Station: 3, Temp: 1.25},
	}

	var buf []byte

	for _, m := range in {
		data, err := m.Schema().Encode(m)
		require.NoError(t, err)

		buf = append(buf, data...)
	}

	pkt, err := xnet.NewPacket(buf, len(buf))
	require.NoError(t, err)

	out := r.Decode(pkt)
	require.Len(t, out, len(in))

	for i := range in {
		assert.Equal(t, in[i], out[i])
	}
}

func TestDecodeTruncatedTail(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	first, err := pingSchema.Encode(&ping{Seq: 9})
	require.NoError(t, err)

	second, err := pingSchema.Encode(&ping{Seq: 10})
	require.NoError(t, err)

	// Second message is one byte short of its minimum size: only the first
	// message decodes, the tail is dropped.
	buf := append(first, second[:len(second)-1]...)
	pkt, err := xnet.NewPacket(buf, len(buf))
	require.NoError(t, err)

	out := r.Decode(pkt)
	require.Len(t, out, 1)
	assert.Equal(t, int64(9), out[0].(*ping).Seq)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	pkt, err := xnet.NewPacket([]byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 12)
	require.NoError(t, err)

	assert.Empty(t, r.Decode(pkt))
}

func TestDecodeEmptyInput(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	pkt, err := xnet.NewPacket(nil, 0)
	require.NoError(t, err)

	assert.Empty(t, r.Decode(pkt))
	assert.Empty(t, r.Decode(nil))
}

func TestDecodeInvalidBool(t *testing.T) {
	t.Parallel()

	data, err := pingSchema.Encode(&ping{Seq: 1, Reply: true})
	require.NoError(t, err)

	// Any boolean byte other than 0 or 1 is invalid framing input.
	data[len(data)-1] = 2

	_, _, ok := pingSchema.Decode(data)
	assert.False(t, ok)
}

func TestEncodeFieldTooLong(t *testing.T) {
	t.Parallel()

	_, err := helloSchema.Encode(&hello{Who: string(make([]byte, 256))})
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestDecodeIgnoresInterleavedGarbage(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	data, err := pingSchema.Encode(&ping{Seq: 5})
	require.NoError(t, err)

	// Garbage after a whole message stops the scan but keeps the message.
	buf := append(data, 0xAB)
	pkt, err := xnet.NewPacket(buf, len(buf))
	require.NoError(t, err)

	out := r.Decode(pkt)
	require.Len(t, out, 1)
}
