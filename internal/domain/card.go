package domain

// Suit is one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Rank is a card face from 2 to Ace.
type Rank string

// Suits lists all suits in canonical deck order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Ranks lists all ranks in ascending order, Ace high.
var Ranks = []Rank{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

var rankOrder = map[Rank]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8,
	"9": 9, "10": 10, "J": 11, "Q": 12, "K": 13, "A": 14,
}

// RankValue returns the comparison value of a rank, 2..14 with Ace high.
// Unknown ranks compare below everything.
func RankValue(r Rank) int {
	return rankOrder[r]
}

// Card is a single playing card. Identity is (suit, rank); ID is the stable
// wire identifier "<rank>-<suit>" used by play-card actions.
type Card struct {
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
	ID   string `json:"id"`
}

// NewCard builds a card with its canonical ID.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank, ID: string(rank) + "-" + string(suit)}
}

// ValidSuit reports whether s names one of the four suits.
func ValidSuit(s Suit) bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}
