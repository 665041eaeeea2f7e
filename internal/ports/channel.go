package ports

import "taash/internal/protocol"

// ChannelPort defines the interface a session uses to publish envelopes to
// its room. Implementations deliver to every subscribed peer, including the
// sender; directed envelopes (TargetID set) reach only their target.
type ChannelPort interface {
	// Publish sends an envelope to the room.
	Publish(env protocol.Envelope) error
}

// ChannelFunc adapts a function to the ChannelPort interface.
type ChannelFunc func(env protocol.Envelope) error

func (f ChannelFunc) Publish(env protocol.Envelope) error { return f(env) }
