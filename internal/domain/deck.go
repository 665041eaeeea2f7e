package domain

import (
	"math/rand"
	"sort"
)

// NewDeck returns the 52 canonical cards in fixed suit-then-rank order.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, NewCard(s, r))
		}
	}
	return deck
}

// Shuffle returns a Fisher-Yates shuffled copy of the deck using rng.
// A nil rng falls back to the shared math/rand source.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng != nil {
		rng.Shuffle(len(out), swap)
	} else {
		rand.Shuffle(len(out), swap)
	}
	return out
}

// Deal removes count cards per player from the end of the deck, one card at a
// time in seating order, repeated count times. If the deck runs out it deals
// fewer; callers invoke it only when supply is known sufficient.
func Deal(deck []Card, players []*Player, count int) []Card {
	for i := 0; i < count; i++ {
		for _, p := range players {
			if len(deck) == 0 {
				return deck
			}
			card := deck[len(deck)-1]
			deck = deck[:len(deck)-1]
			p.Hand = append(p.Hand, card)
		}
	}
	return deck
}

var suitOrder = map[Suit]int{Spades: 0, Hearts: 1, Diamonds: 2, Clubs: 3}

// SortHand orders a hand by suit (spades, hearts, diamonds, clubs) and then by
// descending rank within each suit.
func SortHand(hand []Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		if hand[i].Suit != hand[j].Suit {
			return suitOrder[hand[i].Suit] < suitOrder[hand[j].Suit]
		}
		return RankValue(hand[i].Rank) > RankValue(hand[j].Rank)
	})
}

// RemoveCard removes the card with the given ID from a hand, preserving order.
// The second return reports whether the card was present.
func RemoveCard(hand []Card, cardID string) ([]Card, Card, bool) {
	for i, c := range hand {
		if c.ID == cardID {
			out := make([]Card, 0, len(hand)-1)
			out = append(out, hand[:i]...)
			out = append(out, hand[i+1:]...)
			return out, c, true
		}
	}
	return hand, Card{}, false
}
