package bot

import (
	"schafkopf/internal/app"
	"schafkopf/internal/domain"
)

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

var _ app.Decider = (*Agent)(nil)

// Intent asks the strategy whether to take part in the auction.
func (a *Agent) Intent(view domain.PlayerView, auction *domain.Auction) bool {
	return a.Strategy.Intent(view, auction)
}

// Bid asks the strategy for a bid. A bid outside the hand's valid bids becomes the
// first valid one, so a misbehaving strategy cannot stall the table.
func (a *Agent) Bid(view domain.PlayerView, auction *domain.Auction) domain.Contract {
	bid := a.Strategy.Bid(view, auction)
	hand := view.Hand
	valid := auction.ValidBids(&hand)
	for _, c := range valid {
		if c == bid {
			return bid
		}
	}
	if len(valid) == 0 {
		return domain.NoContract()
	}
	return valid[0]
}

// Play asks the strategy for a card, falling back to the first legal card.
func (a *Agent) Play(view domain.PlayerView, legal []domain.Card) domain.Card {
	card := a.Strategy.Play(view, legal)
	for _, c := range legal {
		if c == card {
			return card
		}
	}
	if len(legal) == 0 {
		return card
	}
	return legal[0]
}
