package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"taash/internal/domain"
	"taash/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy
// the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type broadcast struct {
	opCode     int64
	data       []byte
	recipients []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcasts   []broadcast
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcasts = append(md.broadcasts, broadcast{
		opCode:     opCode,
		data:       append([]byte(nil), data...),
		recipients: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

// fakePresence satisfies runtime.Presence with a bare user id.
type fakePresence struct {
	userID string
}

func (fp fakePresence) GetUserId() string                 { return fp.userID }
func (fp fakePresence) GetSessionId() string              { return "session-" + fp.userID }
func (fp fakePresence) GetNodeId() string                 { return "node" }
func (fp fakePresence) GetHidden() bool                   { return false }
func (fp fakePresence) GetPersistence() bool              { return false }
func (fp fakePresence) GetUsername() string               { return fp.userID }
func (fp fakePresence) GetStatus() string                 { return "" }
func (fp fakePresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

// fakeMatchData wraps a presence and a payload.
type fakeMatchData struct {
	fakePresence
	opCode int64
	data   []byte
}

func (fm fakeMatchData) GetOpCode() int64      { return fm.opCode }
func (fm fakeMatchData) GetData() []byte       { return fm.data }
func (fm fakeMatchData) GetReliable() bool     { return true }
func (fm fakeMatchData) GetReceiveTime() int64 { return 0 }

func newRelayState(t *testing.T, members ...string) (*relayHandler, *RelayState) {
	t.Helper()
	rh := &relayHandler{}
	state := &RelayState{
		RoomCode:  "ABCD",
		Variant:   string(domain.VariantThulla),
		Presences: make(map[string]runtime.Presence),
	}
	for _, id := range members {
		state.Presences[id] = fakePresence{userID: id}
	}
	return rh, state
}

func envelopeData(t *testing.T, env protocol.Envelope) []byte {
	t.Helper()
	data, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestMatchInitLabel(t *testing.T) {
	rh := &relayHandler{}
	params := map[string]interface{}{
		"room_code":    "WXYZ",
		"variant":      "rung",
		"has_password": true,
	}
	state, tickRate, label := rh.MatchInit(context.Background(), noopLogger{}, nil, nil, params)
	if state == nil || tickRate <= 0 {
		t.Fatalf("init returned state=%v tickRate=%d", state, tickRate)
	}

	var got relayLabel
	if err := json.Unmarshal([]byte(label), &got); err != nil {
		t.Fatalf("label not JSON: %v", err)
	}
	if got.RoomCode != "WXYZ" || got.Variant != "rung" || !got.HasPassword || got.Members != 0 {
		t.Fatalf("label = %+v", got)
	}
}

func TestMatchLoopRebroadcastsWithSenderAttribution(t *testing.T) {
	rh, state := newRelayState(t, "a-dev", "b-dev")
	dispatcher := &mockDispatcher{}

	// The payload claims to be from the authority; the connection says b-dev.
	env := protocol.NewAction("a-dev", domain.Action{Kind: domain.ActionStart})
	msg := fakeMatchData{
		fakePresence: fakePresence{userID: "b-dev"},
		opCode:       protocol.OpAction,
		data:         envelopeData(t, env),
	}

	rh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

	if len(dispatcher.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(dispatcher.broadcasts))
	}
	out, err := protocol.Decode(dispatcher.broadcasts[0].data)
	if err != nil {
		t.Fatalf("decode rebroadcast: %v", err)
	}
	if out.SenderID != "b-dev" {
		t.Fatalf("sender = %s, want connection identity b-dev", out.SenderID)
	}
	if dispatcher.broadcasts[0].recipients != nil {
		t.Fatalf("undirected envelope must broadcast to everyone")
	}
}

func TestMatchLoopDirectedDelivery(t *testing.T) {
	rh, state := newRelayState(t, "a-dev", "b-dev", "c-dev")
	dispatcher := &mockDispatcher{}

	env := protocol.NewJoinRejected("a-dev", "b-dev", domain.RejectDuplicateName)
	msg := fakeMatchData{
		fakePresence: fakePresence{userID: "a-dev"},
		opCode:       protocol.OpJoinRejected,
		data:         envelopeData(t, env),
	}

	rh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

	if len(dispatcher.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(dispatcher.broadcasts))
	}
	got := dispatcher.broadcasts[0]
	if len(got.recipients) != 1 || got.recipients[0].GetUserId() != "b-dev" {
		t.Fatalf("directed envelope delivered to %v, want only b-dev", got.recipients)
	}
}

func TestMatchLoopDropsMalformedAndForged(t *testing.T) {
	rh, state := newRelayState(t, "a-dev", "b-dev")
	dispatcher := &mockDispatcher{}

	msgs := []runtime.MatchData{
		fakeMatchData{
			fakePresence: fakePresence{userID: "b-dev"},
			data:         []byte("{not an envelope"),
		},
		// A peer must not be able to fake another peer's departure.
		fakeMatchData{
			fakePresence: fakePresence{userID: "b-dev"},
			opCode:       protocol.OpMemberLeft,
			data:         envelopeData(t, protocol.NewMemberLeft("a-dev")),
		},
	}
	rh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, msgs)

	if len(dispatcher.broadcasts) != 0 {
		t.Fatalf("broadcasts = %d, want 0", len(dispatcher.broadcasts))
	}
}

func TestMatchLeaveSynthesizesMemberLeft(t *testing.T) {
	rh, state := newRelayState(t, "a-dev", "b-dev")
	dispatcher := &mockDispatcher{}

	next := rh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{fakePresence{userID: "b-dev"}})
	if next == nil {
		t.Fatalf("room with a remaining member must not terminate")
	}

	if len(dispatcher.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(dispatcher.broadcasts))
	}
	env, err := protocol.Decode(dispatcher.broadcasts[0].data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != protocol.KindMemberLeft || env.SenderID != "b-dev" {
		t.Fatalf("envelope = %+v, want member-left for b-dev", env)
	}

	// Last member leaving terminates the room.
	next = rh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, next, []runtime.Presence{fakePresence{userID: "a-dev"}})
	if next != nil {
		t.Fatalf("empty room must terminate")
	}
}

func TestMatchJoinTracksPresence(t *testing.T) {
	rh, state := newRelayState(t)
	dispatcher := &mockDispatcher{}

	next := rh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{
		fakePresence{userID: "a-dev"},
		fakePresence{userID: "b-dev"},
	})
	got, ok := next.(*RelayState)
	if !ok {
		t.Fatalf("state type lost")
	}
	if len(got.Presences) != 2 {
		t.Fatalf("presences = %d, want 2", len(got.Presences))
	}
	if dispatcher.labelUpdates == 0 {
		t.Fatalf("label not refreshed on join")
	}
	var label relayLabel
	if err := json.Unmarshal([]byte(dispatcher.lastLabel), &label); err != nil {
		t.Fatalf("label not JSON: %v", err)
	}
	if label.Members != 2 {
		t.Fatalf("label members = %d, want 2", label.Members)
	}
}
