package domain

import "math/rand"

// HandSize is the number of cards dealt to each player.
const HandSize = 8

// Hand tracks the cards a player still holds and the ones already played.
type Hand struct {
	Cards  []Card
	Played []Card
}

// Holds reports whether card is still in the hand.
func (h *Hand) Holds(card Card) bool {
	return containsCard(h.Cards, card)
}

// CountSuit counts held cards of the printed suit s.
func (h *Hand) CountSuit(s Suit) int {
	n := 0
	for _, c := range h.Cards {
		if c.Suit == s {
			n++
		}
	}
	return n
}

// HoldsTrump reports whether any held card is a trump under contract.
func (h *Hand) HoldsTrump(contract Contract) bool {
	for _, c := range h.Cards {
		if IsTrump(c, contract) {
			return true
		}
	}
	return false
}

func (h *Hand) play(card Card) {
	h.Cards = removeCard(h.Cards, card)
	h.Played = append(h.Played, card)
}

func (h Hand) clone() Hand {
	return Hand{
		Cards:  append([]Card(nil), h.Cards...),
		Played: append([]Card(nil), h.Played...),
	}
}

// Dealer hands out eight-card hands from a shuffled deck, reshuffling a fresh deck when it runs short.
type Dealer struct {
	rng  *rand.Rand
	deck []Card
}

// NewDealer creates a dealer with a freshly shuffled deck.
func NewDealer(rng *rand.Rand) *Dealer {
	d := &Dealer{rng: rng}
	d.Reset()
	return d
}

// Reset replaces the remaining cards with a freshly shuffled full deck.
func (d *Dealer) Reset() {
	d.deck = ShuffleDeck(NewDeck(), d.rng)
}

// Remaining returns how many cards are left before the next reshuffle.
func (d *Dealer) Remaining() int {
	return len(d.deck)
}

// Deal pops the next eight cards off the deck.
func (d *Dealer) Deal() Hand {
	if len(d.deck) < HandSize {
		d.Reset()
	}
	n := len(d.deck)
	cards := append([]Card(nil), d.deck[n-HandSize:]...)
	d.deck = d.deck[:n-HandSize]
	return Hand{Cards: cards}
}
