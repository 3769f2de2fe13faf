// Package message defines the demo wire messages used by the runnable
// examples and the transport tests.
package message

import "github.com/Siloft/siloft-networking/protocol"

// Ping is a round-trip probe. The responder echoes Seq back and flips Reply.
type Ping struct {
	Seq   int64
	Reply bool
}

var pingSchema = protocol.NewSchema(1, func() protocol.Message { return &Ping{} }).
	Int64("seq",
		func(m protocol.Message) int64 { return m.(*Ping).Seq },
		func(m protocol.Message, v int64) { m.(*Ping).Seq = v }).
	Bool("reply",
		func(m protocol.Message) bool { return m.(*Ping).Reply },
		func(m protocol.Message, v bool) { m.(*Ping).Reply = v })

func (m *Ping) Schema() *protocol.Schema {
	return pingSchema
}

// Chat carries one text line from a named sender.
type Chat struct {
	Sender string
	Text   string
}

var chatSchema = protocol.NewSchema(2, func() protocol.Message { return &Chat{} }).
	String("sender",
		func(m protocol.Message) string { return m.(*Chat).Sender },
		func(m protocol.Message, v string) { m.(*Chat).Sender = v }).
	String("text",
		func(m protocol.Message) string { return m.(*Chat).Text },
		func(m protocol.Message, v string) { m.(*Chat).Text = v })

func (m *Chat) Schema() *protocol.Schema {
	return chatSchema
}

// NewRegistry bundles the demo schemas into a registry ready to attach to a
// server or client.
func NewRegistry() (*protocol.Registry, error) {
	return protocol.NewRegistry(pingSchema, chatSchema)
}
