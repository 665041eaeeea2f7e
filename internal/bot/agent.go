// Package bot provides computer players the authority can seat into a room.
// Agents only ever pick from the legal move set, so an agent action is
// indistinguishable from a careful human's as far as the rules are concerned.
package bot

import (
	"fmt"
	"strings"

	"taash/internal/domain"
)

const idPrefix = "bot:"

// IsBot reports whether a peer id belongs to a seated bot.
func IsBot(playerID string) bool {
	return strings.HasPrefix(playerID, idPrefix)
}

// NewBotID derives a stable bot peer id from a seat ordinal.
func NewBotID(n int) string {
	return fmt.Sprintf("%s%d", idPrefix, n)
}

var botNames = []string{"Chacha", "Ustad", "Munna", "Shehzada", "Babu", "Khala"}

// BotName returns a display name for the nth bot.
func BotName(n int) string {
	return botNames[n%len(botNames)]
}

// Agent plays the cheapest legal move. It holds no hidden state; every
// decision is a pure function of the snapshot it is shown.
type Agent struct{}

func NewAgent() *Agent { return &Agent{} }

// Move picks the bot's next action, or reports false when it is not the
// bot's turn or no action exists.
func (a *Agent) Move(s *domain.MatchState, playerID string) (domain.Action, bool) {
	switch s.Phase {
	case domain.PhaseTrumpSelection:
		if s.TrumpCallerID != playerID {
			return domain.Action{}, false
		}
		return domain.Action{Kind: domain.ActionSelectTrump, Suit: a.pickTrump(s, playerID)}, true
	case domain.PhasePlaying:
		if s.CurrentActorID != playerID {
			return domain.Action{}, false
		}
		card, ok := a.pickCard(s, playerID)
		if !ok {
			return domain.Action{}, false
		}
		return domain.Action{Kind: domain.ActionPlayCard, CardID: card.ID}, true
	}
	return domain.Action{}, false
}

// pickTrump calls the suit the bot holds most of.
func (a *Agent) pickTrump(s *domain.MatchState, playerID string) domain.Suit {
	p := s.FindPlayer(playerID)
	if p == nil {
		return domain.Spades
	}
	counts := map[domain.Suit]int{}
	for _, c := range p.Hand {
		counts[c.Suit]++
	}
	best, bestN := domain.Suit(""), -1
	for _, suit := range []domain.Suit{domain.Spades, domain.Hearts, domain.Diamonds, domain.Clubs} {
		if counts[suit] > bestN {
			best, bestN = suit, counts[suit]
		}
	}
	return best
}

// pickCard sheds the lowest-ranked card in the legal set.
func (a *Agent) pickCard(s *domain.MatchState, playerID string) (domain.Card, bool) {
	p := s.FindPlayer(playerID)
	if p == nil || len(p.Hand) == 0 {
		return domain.Card{}, false
	}

	var valid []domain.Card
	switch s.Variant {
	case domain.VariantThulla:
		valid = domain.ThullaValidCards(p, s.CurrentTrick)
	default:
		valid = domain.ValidCards(p, s.CurrentTrick)
	}
	if len(valid) == 0 {
		return domain.Card{}, false
	}

	low := valid[0]
	for _, c := range valid[1:] {
		if domain.RankValue(c.Rank) < domain.RankValue(low.Rank) {
			low = c
		}
	}
	return low, true
}
