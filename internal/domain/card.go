package domain

import (
	"fmt"
	"math/rand"
	"strings"
)

// Suit is one of the four German-deck suits. The numeric order only breaks ties between trumps.
type Suit int

const (
	Bells Suit = iota
	Hearts
	Leaves
	Acorns
)

// Suits lists every suit in ascending order.
var Suits = [4]Suit{Bells, Hearts, Leaves, Acorns}

var suitNames = [...]string{"bells", "hearts", "leaves", "acorns"}

func (s Suit) String() string {
	if s < Bells || s > Acorns {
		return fmt.Sprintf("suit(%d)", int(s))
	}
	return suitNames[s]
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s >= Bells && s <= Acorns
}

// ParseSuit converts a suit name back into a Suit.
func ParseSuit(name string) (Suit, error) {
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Rank orders cards inside a suit, weakest first.
type Rank int

const (
	Seven Rank = iota
	Eight
	Nine
	King
	Ten
	Under
	Ober
	Ace
)

// Ranks lists every rank in ascending order.
var Ranks = [8]Rank{Seven, Eight, Nine, King, Ten, Under, Ober, Ace}

var rankNames = [...]string{"seven", "eight", "nine", "king", "ten", "under", "ober", "ace"}

func (r Rank) String() string {
	if r < Seven || r > Ace {
		return fmt.Sprintf("rank(%d)", int(r))
	}
	return rankNames[r]
}

// Valid reports whether r is one of the eight ranks.
func (r Rank) Valid() bool {
	return r >= Seven && r <= Ace
}

// ParseRank converts a rank name back into a Rank.
func ParseRank(name string) (Rank, error) {
	for i, n := range rankNames {
		if n == name {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", name)
}

// Points returns the card points carried by a card of this rank.
func (r Rank) Points() int {
	switch r {
	case Ten:
		return 10
	case Under:
		return 2
	case Ober:
		return 3
	case King:
		return 4
	case Ace:
		return 11
	default:
		return 0
	}
}

// Card is a single card of the 32-card deck.
type Card struct {
	Suit Suit
	Rank Rank
}

// Points returns the card points of c.
func (c Card) Points() int {
	return c.Rank.Points()
}

// String renders a card as "<suit>-<rank>", e.g. "acorns-ober".
func (c Card) String() string {
	return c.Suit.String() + "-" + c.Rank.String()
}

// ParseCard is the inverse of Card.String.
func ParseCard(s string) (Card, error) {
	suitName, rankName, ok := strings.Cut(s, "-")
	if !ok {
		return Card{}, fmt.Errorf("malformed card %q", s)
	}
	suit, err := ParseSuit(suitName)
	if err != nil {
		return Card{}, err
	}
	rank, err := ParseRank(rankName)
	if err != nil {
		return Card{}, err
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// DeckSize is the number of cards in a Schafkopf deck.
const DeckSize = 32

// TotalDeckPoints is the sum of all card points in the deck.
const TotalDeckPoints = 120

// NewDeck returns the 32-card deck ordered by suit, then rank.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// TotalPoints sums the card points of cards.
func TotalPoints(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Points()
	}
	return total
}

func containsCard(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

func removeCard(cards []Card, card Card) []Card {
	out := make([]Card, 0, len(cards))
	removed := false
	for _, c := range cards {
		if !removed && c == card {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}
