// Package app contains the replication use-cases that sit between the pure
// game rules and a room channel. There is no game server: the first peer to
// join a room acts as the authority, applies every action, and broadcasts
// full snapshots that the other peers adopt wholesale.
package app

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"taash/internal/domain"
	"taash/internal/ports"
	"taash/internal/protocol"
)

var (
	ErrNoState      = errors.New("no match state yet")
	ErrRejected     = errors.New("join was rejected")
	ErrNotAuthority = errors.New("peer is not the authority")
	ErrHasState     = errors.New("session already has state")
)

// Session is one peer's view of a room. Every peer runs one; the peer whose
// seat carries the authority flag additionally applies actions and
// broadcasts snapshots. All methods are safe for concurrent use. The channel
// is never called with the session lock held, so a channel that delivers
// synchronously back into Receive (loopback included) cannot deadlock.
type Session struct {
	mu      sync.Mutex
	selfID  string
	channel ports.ChannelPort
	rng     *rand.Rand

	state    *domain.MatchState
	rejected string

	// bots maps player id to the mover the authority consults on that
	// seat's turn. Only the authority seats bots.
	bots map[string]BotMover
}

// BotMover picks an action for a seated bot. Implemented by internal/bot.
type BotMover interface {
	Move(s *domain.MatchState, playerID string) (domain.Action, bool)
}

// NewSession constructs a session for the peer with the given id.
func NewSession(selfID string, channel ports.ChannelPort, rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{
		selfID:  selfID,
		channel: channel,
		rng:     rng,
		bots:    make(map[string]BotMover),
	}
}

// SelfID returns the peer id this session publishes as.
func (s *Session) SelfID() string { return s.selfID }

// CreateRoom bootstraps a fresh room. The creator seats itself directly and
// broadcasts the first snapshot, becoming the authority.
func (s *Session) CreateRoom(variant domain.Variant, roomID, password, playerName, sessionToken string) error {
	s.mu.Lock()
	if s.state != nil {
		s.mu.Unlock()
		return ErrHasState
	}

	st := domain.NewMatchState(variant, roomID, password)
	st.Rand = s.rng
	domain.Apply(st, domain.Action{
		Kind:         domain.ActionJoin,
		PlayerName:   playerName,
		Password:     password,
		SessionToken: sessionToken,
	}, s.selfID)
	if st.FindPlayer(s.selfID) == nil {
		s.mu.Unlock()
		return errors.New("creator could not be seated")
	}
	s.state = st
	out := s.snapshotLocked()
	s.mu.Unlock()
	return s.publish(out)
}

// Join publishes a join action for this peer. The outcome arrives later as
// either a snapshot containing the peer or a directed rejection.
func (s *Session) Join(playerName, password, sessionToken string) error {
	return s.Submit(domain.Action{
		Kind:         domain.ActionJoin,
		PlayerName:   playerName,
		Password:     password,
		SessionToken: sessionToken,
	})
}

// Submit publishes an action attributed to this peer.
func (s *Session) Submit(a domain.Action) error {
	s.mu.Lock()
	if s.rejected != "" {
		s.mu.Unlock()
		return ErrRejected
	}
	s.mu.Unlock()
	return s.channel.Publish(protocol.NewAction(s.selfID, a))
}

// Receive feeds one envelope from the room channel into the session.
func (s *Session) Receive(env protocol.Envelope) error {
	s.mu.Lock()
	if s.rejected != "" || (env.TargetID != "" && env.TargetID != s.selfID) {
		s.mu.Unlock()
		return nil
	}

	var out []protocol.Envelope
	switch env.Kind {
	case protocol.KindAction:
		out = s.handleActionLocked(env)
	case protocol.KindStateUpdate:
		s.handleStateLocked(env)
	case protocol.KindJoinRejected:
		s.rejected = env.Reason
		s.state = nil
	case protocol.KindMemberLeft:
		out = s.handleMemberLeftLocked(env)
	}
	s.mu.Unlock()
	return s.publish(out...)
}

// handleActionLocked runs on every peer but only the authority reacts.
// Actions are attributed to the relay-verified sender, never to anything
// the payload claims.
func (s *Session) handleActionLocked(env protocol.Envelope) []protocol.Envelope {
	if !s.isAuthorityLocked() {
		return nil
	}
	a := *env.Action

	if a.Kind == domain.ActionJoin {
		if reason, rejected := s.state.JoinRejectReason(a, env.SenderID); rejected {
			return []protocol.Envelope{protocol.NewJoinRejected(s.selfID, env.SenderID, reason)}
		}
	}

	// Illegal actions are silent no-ops inside Apply; the snapshot goes out
	// either way so every peer converges on one update path.
	domain.Apply(s.state, a, env.SenderID)
	out := []protocol.Envelope{s.snapshotLocked()}
	return append(out, s.runBotsLocked()...)
}

// handleStateLocked makes a follower adopt the authority's snapshot
// wholesale. The authority ignores echoes of its own broadcasts.
func (s *Session) handleStateLocked(env protocol.Envelope) {
	if env.SenderID == s.selfID || s.isAuthorityLocked() {
		return
	}
	s.state = env.State
}

func (s *Session) handleMemberLeftLocked(env protocol.Envelope) []protocol.Envelope {
	if !s.isAuthorityLocked() || s.state.FindPlayer(env.SenderID) == nil {
		return nil
	}
	domain.Apply(s.state, domain.Action{Kind: domain.ActionLeave}, env.SenderID)
	return []protocol.Envelope{s.snapshotLocked()}
}

func (s *Session) isAuthorityLocked() bool {
	if s.state == nil {
		return false
	}
	p := s.state.FindPlayer(s.selfID)
	return p != nil && p.IsAuthority
}

// IsAuthority reports whether this peer currently holds the authority seat.
func (s *Session) IsAuthority() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAuthorityLocked()
}

// State returns a deep copy of the current snapshot, or ErrNoState before
// the first snapshot arrives, or ErrRejected after a rejection.
func (s *Session) State() (*domain.MatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejected != "" {
		return nil, ErrRejected
	}
	if s.state == nil {
		return nil, ErrNoState
	}
	return s.state.Clone(), nil
}

// RejectReason returns the terminal rejection reason, if any.
func (s *Session) RejectReason() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected, s.rejected != ""
}

// Stalled reports whether the room has lost its authority: the authority
// seat exists but is disconnected. The room cannot make progress and peers
// should abandon it.
func (s *Session) Stalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return false
	}
	for _, p := range s.state.Players {
		if p.IsAuthority {
			return !p.IsConnected
		}
	}
	return false
}

// AddBot seats a bot on the authority's state and broadcasts. The bot joins
// through the same transition as a human so every seating rule applies.
func (s *Session) AddBot(botID, name string, mover BotMover) error {
	s.mu.Lock()
	if !s.isAuthorityLocked() {
		s.mu.Unlock()
		return ErrNotAuthority
	}
	before := len(s.state.Players)
	domain.Apply(s.state, domain.Action{
		Kind:       domain.ActionJoin,
		PlayerName: name,
		Password:   s.state.RoomPassword,
	}, botID)
	if len(s.state.Players) == before {
		s.mu.Unlock()
		return errors.New("bot could not be seated")
	}
	s.bots[botID] = mover
	out := []protocol.Envelope{s.snapshotLocked()}
	out = append(out, s.runBotsLocked()...)
	s.mu.Unlock()
	return s.publish(out...)
}

// runBotsLocked lets seated bots act while it is their turn, collecting one
// snapshot per applied move. Bounded so a misbehaving mover cannot spin the
// authority forever.
func (s *Session) runBotsLocked() []protocol.Envelope {
	var out []protocol.Envelope
	for i := 0; i < 256; i++ {
		actorID := s.botActorLocked()
		if actorID == "" {
			return out
		}
		a, ok := s.bots[actorID].Move(s.state, actorID)
		if !ok {
			return out
		}
		before := s.state.Digest()
		domain.Apply(s.state, a, actorID)
		if s.state.Digest() == before {
			return out
		}
		out = append(out, s.snapshotLocked())
	}
	return out
}

func (s *Session) botActorLocked() string {
	switch s.state.Phase {
	case domain.PhasePlaying:
		if _, ok := s.bots[s.state.CurrentActorID]; ok {
			return s.state.CurrentActorID
		}
	case domain.PhaseTrumpSelection:
		if _, ok := s.bots[s.state.TrumpCallerID]; ok {
			return s.state.TrumpCallerID
		}
	}
	return ""
}

func (s *Session) snapshotLocked() protocol.Envelope {
	return protocol.NewStateUpdate(s.selfID, s.state.Clone())
}

func (s *Session) publish(envs ...protocol.Envelope) error {
	for _, env := range envs {
		if err := s.channel.Publish(env); err != nil {
			return err
		}
	}
	return nil
}
