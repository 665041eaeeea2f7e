// Package protocol defines the wire envelopes exchanged over a room channel.
//
// Every message on a room channel is an Envelope. Peers publish action
// envelopes; the authority answers with state-update envelopes carrying a
// full snapshot, or with a directed join-rejected envelope. The relay itself
// synthesizes member-left envelopes when a connection drops.
package protocol

import (
	"encoding/json"
	"fmt"

	"taash/internal/domain"
)

// Envelope kinds.
const (
	KindAction       = "action"
	KindStateUpdate  = "state_update"
	KindJoinRejected = "join_rejected"
	KindMemberLeft   = "member_left"
)

// Op codes for relay transports that carry a numeric opcode alongside the
// payload (the Nakama adapter). The JSON envelope kind stays authoritative;
// the opcode mirrors it for client-side routing.
const (
	OpAction       int64 = 1
	OpStateUpdate  int64 = 101
	OpJoinRejected int64 = 102
	OpMemberLeft   int64 = 103
)

// Envelope is the single message type on a room channel.
type Envelope struct {
	Kind string `json:"kind"`

	// SenderID is the peer the relay attributes the message to. Receivers
	// trust this field over anything inside the payload.
	SenderID string `json:"sender_id"`

	// TargetID restricts delivery to one peer. Empty means broadcast.
	TargetID string `json:"target_id,omitempty"`

	// Action is set when Kind is KindAction.
	Action *domain.Action `json:"action,omitempty"`

	// State is set when Kind is KindStateUpdate. Always a full snapshot.
	State *domain.MatchState `json:"state,omitempty"`

	// Reason is set when Kind is KindJoinRejected.
	Reason string `json:"reason,omitempty"`
}

// NewAction wraps an action for publication by the given peer.
func NewAction(senderID string, a domain.Action) Envelope {
	return Envelope{Kind: KindAction, SenderID: senderID, Action: &a}
}

// NewStateUpdate wraps a full snapshot broadcast by the authority.
func NewStateUpdate(senderID string, s *domain.MatchState) Envelope {
	return Envelope{Kind: KindStateUpdate, SenderID: senderID, State: s}
}

// NewJoinRejected builds the directed rejection the authority sends back to
// a peer whose join action could not be seated.
func NewJoinRejected(senderID, targetID, reason string) Envelope {
	return Envelope{Kind: KindJoinRejected, SenderID: senderID, TargetID: targetID, Reason: reason}
}

// NewMemberLeft is synthesized by the relay when a peer's connection drops.
func NewMemberLeft(peerID string) Envelope {
	return Envelope{Kind: KindMemberLeft, SenderID: peerID}
}

// OpCode maps the envelope kind to its transport opcode.
func (e Envelope) OpCode() int64 {
	switch e.Kind {
	case KindAction:
		return OpAction
	case KindStateUpdate:
		return OpStateUpdate
	case KindJoinRejected:
		return OpJoinRejected
	case KindMemberLeft:
		return OpMemberLeft
	}
	return 0
}

// Validate checks the envelope carries the payload its kind requires.
func (e Envelope) Validate() error {
	switch e.Kind {
	case KindAction:
		if e.Action == nil {
			return fmt.Errorf("action envelope without action")
		}
	case KindStateUpdate:
		if e.State == nil {
			return fmt.Errorf("state_update envelope without state")
		}
	case KindJoinRejected:
		if e.TargetID == "" {
			return fmt.Errorf("join_rejected envelope without target")
		}
	case KindMemberLeft:
		if e.SenderID == "" {
			return fmt.Errorf("member_left envelope without peer")
		}
	default:
		return fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
	return nil
}

// Encode marshals the envelope for the wire.
func Encode(e Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode unmarshals and validates a wire envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
