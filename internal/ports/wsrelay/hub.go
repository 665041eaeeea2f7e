// Package wsrelay is the standalone websocket flavor of the room relay. It
// carries the same envelope traffic as the Nakama adapter without any game
// knowledge: peers publish, the hub fans out, the authority peer decides.
package wsrelay

import (
	"fmt"
	"log"
	"sync"

	"taash/internal/domain"
	"taash/internal/ports"
	"taash/internal/protocol"
)

// Sink receives encoded envelopes for one connected peer.
type Sink func(data []byte)

type peer struct {
	id   string
	sink Sink
}

type room struct {
	code        string
	variant     domain.Variant
	hasPassword bool
	peers       map[string]*peer
}

func (r *room) maxSeats() int {
	if r.variant == domain.VariantThulla {
		return 6
	}
	return 4
}

// Hub tracks rooms and routes envelopes between their peers. Safe for
// concurrent use by connection goroutines.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// CreateRoom registers an empty room under the given code.
func (h *Hub) CreateRoom(code string, variant domain.Variant, hasPassword bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rooms[code]; exists {
		return fmt.Errorf("room %s already exists", code)
	}
	h.rooms[code] = &room{
		code:        code,
		variant:     variant,
		hasPassword: hasPassword,
		peers:       make(map[string]*peer),
	}
	return nil
}

// Join attaches a peer's sink to a room. The peer starts receiving every
// envelope addressed to the room or to it specifically.
func (h *Hub) Join(code, peerID string, sink Sink) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[code]
	if !ok {
		return fmt.Errorf("room %s not found", code)
	}
	if _, taken := r.peers[peerID]; taken {
		return fmt.Errorf("peer %s already connected to room %s", peerID, code)
	}
	r.peers[peerID] = &peer{id: peerID, sink: sink}
	return nil
}

// Leave detaches a peer and announces its departure to the remaining peers.
// Empty rooms are dropped.
func (h *Hub) Leave(code, peerID string) {
	h.mu.Lock()
	r, ok := h.rooms[code]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := r.peers[peerID]; !present {
		h.mu.Unlock()
		return
	}
	delete(r.peers, peerID)
	if len(r.peers) == 0 {
		delete(h.rooms, code)
		h.mu.Unlock()
		return
	}
	sinks := r.sinksFor("")
	h.mu.Unlock()

	env := protocol.NewMemberLeft(peerID)
	data, err := protocol.Encode(env)
	if err != nil {
		log.Printf("wsrelay: encode member-left for %s: %v", peerID, err)
		return
	}
	deliver(sinks, data)
}

// Route ingests one raw envelope from a connected peer and fans it out.
// Sender attribution always comes from the connection identity.
func (h *Hub) Route(code, senderID string, raw []byte) error {
	env, err := protocol.Decode(raw)
	if err != nil {
		return fmt.Errorf("malformed envelope from %s: %w", senderID, err)
	}
	if env.Kind == protocol.KindMemberLeft {
		return fmt.Errorf("forged member-left from %s", senderID)
	}
	env.SenderID = senderID

	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}

	h.mu.Lock()
	r, ok := h.rooms[code]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("room %s not found", code)
	}
	sinks := r.sinksFor(env.TargetID)
	h.mu.Unlock()

	if env.TargetID != "" && len(sinks) == 0 {
		// Directed envelope for a peer that already dropped.
		return nil
	}
	deliver(sinks, data)
	return nil
}

// sinksFor collects delivery targets under the hub lock; target "" means
// everyone in the room.
func (r *room) sinksFor(targetID string) []Sink {
	var sinks []Sink
	for _, p := range r.peers {
		if targetID != "" && p.id != targetID {
			continue
		}
		sinks = append(sinks, p.sink)
	}
	return sinks
}

func deliver(sinks []Sink, data []byte) {
	for _, sink := range sinks {
		sink(data)
	}
}

// ListOpen implements ports.RoomRegistryPort. Free seats are an upper bound
// derived from the variant cap; the authority still applies its own rules.
func (h *Hub) ListOpen() ([]ports.RoomInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []ports.RoomInfo
	for _, r := range h.rooms {
		open := r.maxSeats() - len(r.peers)
		if open <= 0 {
			continue
		}
		out = append(out, ports.RoomInfo{
			RoomCode:    r.code,
			Variant:     string(r.variant),
			OpenSeats:   open,
			HasPassword: r.hasPassword,
		})
	}
	return out, nil
}

// Resolve implements ports.RoomRegistryPort.
func (h *Hub) Resolve(roomCode string) (ports.RoomInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomCode]
	if !ok {
		return ports.RoomInfo{}, false
	}
	return ports.RoomInfo{
		RoomCode:    r.code,
		Variant:     string(r.variant),
		OpenSeats:   r.maxSeats() - len(r.peers),
		HasPassword: r.hasPassword,
	}, true
}
