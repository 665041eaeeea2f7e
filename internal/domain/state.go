package domain

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Variant selects which rule set a match uses.
type Variant string

const (
	// VariantRung is the 4-player partnership trick game (Court Piece).
	VariantRung Variant = "rung"
	// VariantThulla is the 3-6 player shedding game (Bhabhi).
	VariantThulla Variant = "thulla"
)

// Phase is the lifecycle stage of a match.
type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseTrumpSelection Phase = "trump-selection"
	PhasePlaying        Phase = "playing"
	PhaseRoundEnd       Phase = "round-end"
)

// Team is a partnership assignment; TeamNone for individual play.
type Team string

const (
	TeamA    Team = "A"
	TeamB    Team = "B"
	TeamNone Team = "none"
)

// Player is a seated participant. A seat is occupied for the lifetime of the
// match; disconnects only flip IsConnected.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Hand         []Card `json:"hand"`
	Team         Team   `json:"team"`
	IsAuthority  bool   `json:"is_authority"`
	IsConnected  bool   `json:"is_connected"`
	Seat         int    `json:"seat"`
	IsEliminated bool   `json:"is_eliminated"`
	IsLoser      bool   `json:"is_loser"`
	SessionToken string `json:"session_token,omitempty"`
}

// Play is one card laid into a trick by a player.
type Play struct {
	PlayerID string `json:"player_id"`
	Card     Card   `json:"card"`
}

// Trick is one round of plays, resolved to a single winner or pickup target.
type Trick struct {
	Plays    []Play `json:"plays"`
	LeadSuit Suit   `json:"lead_suit,omitempty"`
	WinnerID string `json:"winner_id,omitempty"`
}

// MatchState is the canonical, serializable state of one match. It is created
// once by the room creator, mutated exclusively through Apply, and replicated
// wholesale to followers.
type MatchState struct {
	Variant      Variant   `json:"variant"`
	RoomID       string    `json:"room_id"`
	RoomPassword string    `json:"room_password,omitempty"`
	Players      []*Player `json:"players"`
	Phase        Phase     `json:"phase"`
	Deck         []Card    `json:"deck"`

	// Rung
	TrumpSuit       Suit    `json:"trump_suit,omitempty"`
	TrumpCallerID   string  `json:"trump_caller_id,omitempty"`
	CompletedTricks []Trick `json:"completed_tricks"`
	TeamATricks     int     `json:"team_a_tricks"`
	TeamBTricks     int     `json:"team_b_tricks"`
	TeamACourts     int     `json:"team_a_courts"`
	TeamBCourts     int     `json:"team_b_courts"`
	ConsecutiveA    int     `json:"consecutive_wins_a"`
	ConsecutiveB    int     `json:"consecutive_wins_b"`

	// Thulla
	WastePile    []Card         `json:"waste_pile"`
	LoserID      string         `json:"loser_id,omitempty"`
	PlayerLosses map[string]int `json:"player_losses"`

	CurrentTrick    Trick  `json:"current_trick"`
	CurrentActorID  string `json:"current_actor_id,omitempty"`
	DealerID        string `json:"dealer_id,omitempty"`
	RoundNumber     int    `json:"round_number"`
	Message         string `json:"message"`
	MinPlayers      int    `json:"min_players"`
	MaxPlayers      int    `json:"max_players"`

	// Rand, when set, seeds deals deterministically. Never serialized;
	// followers receive already-shuffled hands.
	Rand *rand.Rand `json:"-"`
}

// NewMatchState creates the waiting-phase state for a fresh room.
func NewMatchState(variant Variant, roomID, password string) *MatchState {
	min, max := 4, 4
	if variant == VariantThulla {
		min, max = 3, 6
	}
	return &MatchState{
		Variant:      variant,
		RoomID:       roomID,
		RoomPassword: password,
		Players:      []*Player{},
		Phase:        PhaseWaiting,
		PlayerLosses: map[string]int{},
		RoundNumber:  1,
		Message:      "Waiting for players to join...",
		MinPlayers:   min,
		MaxPlayers:   max,
	}
}

// FindPlayer returns the seated player with the given id, or nil.
func (s *MatchState) FindPlayer(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// SeatOf returns the seat index of the player with the given id, or -1.
func (s *MatchState) SeatOf(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ActivePlayers returns players that are connected, not eliminated and still
// holding cards.
func (s *MatchState) ActivePlayers() []*Player {
	var active []*Player
	for _, p := range s.Players {
		if p.IsConnected && !p.IsEliminated && len(p.Hand) > 0 {
			active = append(active, p)
		}
	}
	return active
}

// CardCount sums every card location tracked by the state. It equals 52 for
// any reachable in-match state.
func (s *MatchState) CardCount() int {
	n := len(s.Deck) + len(s.WastePile) + len(s.CurrentTrick.Plays)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	for _, t := range s.CompletedTricks {
		n += len(t.Plays)
	}
	return n
}

// Clone returns a deep copy of the state via its wire encoding. The rng is
// not carried over; clones are snapshots, not playable authorities.
func (s *MatchState) Clone() *MatchState {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("state not serializable: %v", err))
	}
	var out MatchState
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("state not round-trippable: %v", err))
	}
	return &out
}

// Digest returns a comparable fingerprint of the serialized state.
func (s *MatchState) Digest() string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("state not serializable: %v", err))
	}
	return string(b)
}

func (s *MatchState) playerName(id string) string {
	if p := s.FindPlayer(id); p != nil {
		return p.Name
	}
	return id
}

func (s *MatchState) setMessage(format string, args ...any) {
	s.Message = fmt.Sprintf(format, args...)
}

func newTrick() Trick {
	return Trick{Plays: []Play{}}
}
