package domain

import (
	"math/rand"
	"testing"
)

func mk(s Suit, r Rank) Card {
	return Card{Suit: s, Rank: r}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(deck), DeckSize)
	}
	seen := make(map[Card]bool)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card %s", c)
		}
		seen[c] = true
	}
	if got := TotalPoints(deck); got != TotalDeckPoints {
		t.Fatalf("deck points = %d, want %d", got, TotalDeckPoints)
	}
}

func TestRankPoints(t *testing.T) {
	tests := []struct {
		rank Rank
		want int
	}{
		{Seven, 0}, {Eight, 0}, {Nine, 0}, {King, 4},
		{Ten, 10}, {Under, 2}, {Ober, 3}, {Ace, 11},
	}
	for _, tt := range tests {
		t.Run(tt.rank.String(), func(t *testing.T) {
			if got := tt.rank.Points(); got != tt.want {
				t.Fatalf("%s points = %d, want %d", tt.rank, got, tt.want)
			}
		})
	}
}

func TestParseCard(t *testing.T) {
	for _, c := range NewDeck() {
		got, err := ParseCard(c.String())
		if err != nil {
			t.Fatalf("ParseCard(%q) error: %v", c.String(), err)
		}
		if got != c {
			t.Fatalf("ParseCard(%q) = %v, want %v", c.String(), got, c)
		}
	}

	for _, bad := range []string{"", "acorns", "spades-ace", "acorns-joker", "acorns-ace-ace"} {
		if _, err := ParseCard(bad); err == nil {
			t.Fatalf("ParseCard(%q) expected error", bad)
		}
	}
}

func TestShuffleDeckDeterministic(t *testing.T) {
	a := ShuffleDeck(NewDeck(), rand.New(rand.NewSource(42)))
	b := ShuffleDeck(NewDeck(), rand.New(rand.NewSource(42)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different decks at %d: %s vs %s", i, a[i], b[i])
		}
	}
	if TotalPoints(a) != TotalDeckPoints || len(a) != DeckSize {
		t.Fatalf("shuffle changed the deck contents")
	}
}

func TestDealerDeal(t *testing.T) {
	dealer := NewDealer(rand.New(rand.NewSource(7)))
	seen := make(map[Card]bool)
	for i := 0; i < PlayersPerGame; i++ {
		hand := dealer.Deal()
		if len(hand.Cards) != HandSize || len(hand.Played) != 0 {
			t.Fatalf("hand %d = %d held/%d played, want 8/0", i, len(hand.Cards), len(hand.Played))
		}
		for _, c := range hand.Cards {
			if seen[c] {
				t.Fatalf("card %s dealt twice", c)
			}
			seen[c] = true
		}
	}
	if dealer.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", dealer.Remaining())
	}

	dealer.Deal()
	if dealer.Remaining() != DeckSize-HandSize {
		t.Fatalf("remaining after reshuffle = %d, want %d", dealer.Remaining(), DeckSize-HandSize)
	}
}
