package messaging

import "context"

// Message identifies one message on the external surface.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Payload is the body of a send or edit. Embeds are opaque to this
// package; the renderer decides their shape.
type Payload struct {
	Content string `json:"content,omitempty"`
	Embeds  []any  `json:"embeds,omitempty"`
}

// Surface is the outbound messaging boundary. Implementations must be
// safe for concurrent use; delivery is best-effort and at-most-once.
type Surface interface {
	Send(ctx context.Context, channelID string, payload Payload) (*Message, error)
	Edit(ctx context.Context, msg *Message, payload Payload) error
	Reply(ctx context.Context, msg *Message, content string) (*Message, error)
}

// NoopSurface discards everything. Used when no messaging surface is
// configured.
type NoopSurface struct{}

func (NoopSurface) Send(context.Context, string, Payload) (*Message, error) {
	return &Message{}, nil
}

func (NoopSurface) Edit(context.Context, *Message, Payload) error { return nil }

func (NoopSurface) Reply(context.Context, *Message, string) (*Message, error) {
	return &Message{}, nil
}
