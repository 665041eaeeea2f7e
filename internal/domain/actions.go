package domain

import "strings"

// ActionKind tags the action union.
type ActionKind string

const (
	ActionJoin        ActionKind = "join"
	ActionStart       ActionKind = "start"
	ActionSelectTrump ActionKind = "select-trump"
	ActionPlayCard    ActionKind = "play-card"
	ActionNewRound    ActionKind = "new-round"
	ActionLeave       ActionKind = "leave"
)

// Action is a player intent. Only the fields required by its kind are set.
type Action struct {
	Kind         ActionKind `json:"kind"`
	PlayerName   string     `json:"player_name,omitempty"`
	Password     string     `json:"password,omitempty"`
	SessionToken string     `json:"session_token,omitempty"`
	Suit         Suit       `json:"suit,omitempty"`
	CardID       string     `json:"card_id,omitempty"`
}

// Join-rejection reasons surfaced to the rejected participant. Every other
// precondition failure is silent.
const (
	RejectDuplicateSession = "duplicate session"
	RejectDuplicateName    = "duplicate name"
)

// JoinRejectReason reports whether a join action collides with a currently
// connected seat on session token or display name. These two rejections are
// answered with a directed message; the action must not reach Apply.
func (s *MatchState) JoinRejectReason(a Action, actorID string) (string, bool) {
	if a.Kind != ActionJoin || s.FindPlayer(actorID) != nil {
		return "", false
	}
	for _, p := range s.Players {
		if !p.IsConnected {
			continue
		}
		if a.SessionToken != "" && p.SessionToken == a.SessionToken {
			return RejectDuplicateSession, true
		}
		if strings.EqualFold(p.Name, a.PlayerName) {
			return RejectDuplicateName, true
		}
	}
	return "", false
}

// Apply is the single transition function: it routes an action to the active
// variant's rules, enforcing phase and turn legality. Any precondition failure
// leaves the state untouched, which makes replaying a stale or already-applied
// action a no-op.
func Apply(s *MatchState, a Action, actorID string) {
	switch a.Kind {
	case ActionJoin:
		s.applyJoin(a, actorID)
	case ActionStart:
		s.applyStart(actorID)
	case ActionSelectTrump:
		s.selectTrump(actorID, a.Suit)
	case ActionPlayCard:
		s.applyPlayCard(actorID, a.CardID)
	case ActionNewRound:
		s.applyNewRound()
	case ActionLeave:
		s.applyLeave(actorID)
	}
}

func (s *MatchState) applyJoin(a Action, actorID string) {
	if len(s.Players) >= s.MaxPlayers {
		return
	}
	if s.RoomPassword != "" && a.Password != s.RoomPassword {
		return
	}
	if s.FindPlayer(actorID) != nil {
		return
	}
	if _, rejected := s.JoinRejectReason(a, actorID); rejected {
		return
	}

	seat := len(s.Players)
	team := TeamNone
	if s.Variant == VariantRung {
		if seat%2 == 0 {
			team = TeamA
		} else {
			team = TeamB
		}
	}
	s.Players = append(s.Players, &Player{
		ID:           actorID,
		Name:         a.PlayerName,
		Hand:         []Card{},
		Team:         team,
		IsAuthority:  seat == 0,
		IsConnected:  true,
		Seat:         seat,
		SessionToken: a.SessionToken,
	})
	s.setMessage("%s joined! (%d/%d)", a.PlayerName, len(s.Players), s.MaxPlayers)
}

func (s *MatchState) applyStart(actorID string) {
	if s.Phase != PhaseWaiting {
		return
	}
	if len(s.Players) < s.MinPlayers {
		return
	}
	if s.FindPlayer(actorID) == nil {
		return
	}
	if s.Variant == VariantThulla {
		s.startThulla()
		return
	}
	s.startRung()
}

func (s *MatchState) applyPlayCard(actorID, cardID string) {
	if s.Phase != PhasePlaying || actorID != s.CurrentActorID {
		return
	}
	actor := s.FindPlayer(actorID)
	if actor == nil {
		return
	}

	valid := ValidCards(actor, s.CurrentTrick)
	if s.Variant == VariantThulla {
		valid = ThullaValidCards(actor, s.CurrentTrick)
	}
	allowed := false
	for _, c := range valid {
		if c.ID == cardID {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}

	hand, card, ok := RemoveCard(actor.Hand, cardID)
	if !ok {
		return
	}
	actor.Hand = hand

	if s.Variant == VariantThulla {
		s.playCardThulla(actor, card)
		return
	}
	s.playCardRung(actor, card)
}

func (s *MatchState) applyNewRound() {
	if s.Phase != PhaseRoundEnd {
		return
	}
	if s.Variant == VariantThulla {
		s.newRoundThulla()
		return
	}
	s.newRoundRung()
}

// applyLeave marks the seat disconnected. Seats are never removed.
func (s *MatchState) applyLeave(actorID string) {
	p := s.FindPlayer(actorID)
	if p == nil {
		return
	}
	p.IsConnected = false
	s.setMessage("%s disconnected", p.Name)
}
