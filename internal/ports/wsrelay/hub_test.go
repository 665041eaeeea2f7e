package wsrelay

import (
	"testing"

	"taash/internal/domain"
	"taash/internal/protocol"
)

type recorder struct {
	got []protocol.Envelope
}

func (r *recorder) sink(t *testing.T) Sink {
	return func(data []byte) {
		env, err := protocol.Decode(data)
		if err != nil {
			t.Errorf("hub delivered undecodable envelope: %v", err)
			return
		}
		r.got = append(r.got, env)
	}
}

func raw(t *testing.T, env protocol.Envelope) []byte {
	t.Helper()
	data, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func openRoom(t *testing.T, h *Hub, code string, peers ...string) map[string]*recorder {
	t.Helper()
	if err := h.CreateRoom(code, domain.VariantThulla, false); err != nil {
		t.Fatalf("create room: %v", err)
	}
	recs := make(map[string]*recorder)
	for _, id := range peers {
		rec := &recorder{}
		if err := h.Join(code, id, rec.sink(t)); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
		recs[id] = rec
	}
	return recs
}

func TestRouteBroadcastsToAllPeers(t *testing.T) {
	h := NewHub()
	recs := openRoom(t, h, "ABCD", "a-dev", "b-dev", "c-dev")

	env := protocol.NewAction("spoofed", domain.Action{Kind: domain.ActionStart})
	if err := h.Route("ABCD", "a-dev", raw(t, env)); err != nil {
		t.Fatalf("route: %v", err)
	}

	for id, rec := range recs {
		if len(rec.got) != 1 {
			t.Fatalf("peer %s received %d envelopes, want 1", id, len(rec.got))
		}
		if rec.got[0].SenderID != "a-dev" {
			t.Fatalf("peer %s saw sender %s, want connection identity a-dev", id, rec.got[0].SenderID)
		}
	}
}

func TestRouteDirectedReachesOnlyTarget(t *testing.T) {
	h := NewHub()
	recs := openRoom(t, h, "ABCD", "a-dev", "b-dev", "c-dev")

	env := protocol.NewJoinRejected("a-dev", "b-dev", domain.RejectDuplicateSession)
	if err := h.Route("ABCD", "a-dev", raw(t, env)); err != nil {
		t.Fatalf("route: %v", err)
	}

	if len(recs["b-dev"].got) != 1 {
		t.Fatalf("target received %d envelopes, want 1", len(recs["b-dev"].got))
	}
	if len(recs["a-dev"].got) != 0 || len(recs["c-dev"].got) != 0 {
		t.Fatalf("directed envelope leaked to non-targets")
	}
}

func TestRouteRejectsGarbageAndForgedLeft(t *testing.T) {
	h := NewHub()
	recs := openRoom(t, h, "ABCD", "a-dev", "b-dev")

	if err := h.Route("ABCD", "b-dev", []byte("{nope")); err == nil {
		t.Fatalf("malformed envelope routed")
	}
	if err := h.Route("ABCD", "b-dev", raw(t, protocol.NewMemberLeft("a-dev"))); err == nil {
		t.Fatalf("forged member-left routed")
	}
	for id, rec := range recs {
		if len(rec.got) != 0 {
			t.Fatalf("peer %s received %d envelopes, want 0", id, len(rec.got))
		}
	}
}

func TestLeaveAnnouncesMemberLeft(t *testing.T) {
	h := NewHub()
	recs := openRoom(t, h, "ABCD", "a-dev", "b-dev")

	h.Leave("ABCD", "b-dev")

	if got := recs["a-dev"].got; len(got) != 1 || got[0].Kind != protocol.KindMemberLeft || got[0].SenderID != "b-dev" {
		t.Fatalf("remaining peer saw %v, want member-left for b-dev", got)
	}
	if len(recs["b-dev"].got) != 0 {
		t.Fatalf("departed peer received its own departure")
	}
}

func TestEmptyRoomIsDropped(t *testing.T) {
	h := NewHub()
	openRoom(t, h, "ABCD", "a-dev")

	h.Leave("ABCD", "a-dev")

	if _, ok := h.Resolve("ABCD"); ok {
		t.Fatalf("empty room still resolvable")
	}
	// And the code becomes reusable.
	if err := h.CreateRoom("ABCD", domain.VariantRung, false); err != nil {
		t.Fatalf("recreate room: %v", err)
	}
}

func TestDuplicateJoinRefused(t *testing.T) {
	h := NewHub()
	openRoom(t, h, "ABCD", "a-dev")

	if err := h.Join("ABCD", "a-dev", func([]byte) {}); err == nil {
		t.Fatalf("second connection for same peer accepted")
	}
	if err := h.Join("QRST", "b-dev", func([]byte) {}); err == nil {
		t.Fatalf("join to unknown room accepted")
	}
}

func TestListOpenAndResolve(t *testing.T) {
	h := NewHub()
	openRoom(t, h, "ABCD", "a-dev")
	if err := h.CreateRoom("WXYZ", domain.VariantRung, true); err != nil {
		t.Fatalf("create room: %v", err)
	}

	rooms, err := h.ListOpen()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("open rooms = %d, want 2", len(rooms))
	}

	info, ok := h.Resolve("ABCD")
	if !ok {
		t.Fatalf("room not resolvable")
	}
	if info.Variant != string(domain.VariantThulla) || info.OpenSeats != 5 {
		t.Fatalf("info = %+v", info)
	}
	rung, _ := h.Resolve("WXYZ")
	if rung.OpenSeats != 4 || !rung.HasPassword {
		t.Fatalf("rung info = %+v", rung)
	}
}

func TestSessionOverHub(t *testing.T) {
	// A hub-backed channel must be able to drive a real authority session:
	// the loopback delivery pattern the websocket transport produces.
	h := NewHub()
	if err := h.CreateRoom("ABCD", domain.VariantThulla, false); err != nil {
		t.Fatalf("create room: %v", err)
	}

	var delivered []protocol.Envelope
	if err := h.Join("ABCD", "a-dev", func(data []byte) {
		env, err := protocol.Decode(data)
		if err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		delivered = append(delivered, env)
	}); err != nil {
		t.Fatalf("join: %v", err)
	}

	env := protocol.NewAction("a-dev", domain.Action{Kind: domain.ActionJoin, PlayerName: "A"})
	if err := h.Route("ABCD", "a-dev", raw(t, env)); err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("publisher did not receive its own envelope")
	}
}
