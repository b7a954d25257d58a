package bot

import (
	"math/rand"
	"time"

	"schafkopf/internal/domain"
)

// RandomBrain picks uniformly among the allowed choices.
type RandomBrain struct {
	rng *rand.Rand
}

// NewRandomBrain uses rng, or a time-seeded source when rng is nil.
func NewRandomBrain(rng *rand.Rand) *RandomBrain {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomBrain{rng: rng}
}

func (b *RandomBrain) Intent(view domain.PlayerView, auction *domain.Auction) bool {
	return b.rng.Intn(2) == 0
}

func (b *RandomBrain) Bid(view domain.PlayerView, auction *domain.Auction) domain.Contract {
	hand := view.Hand
	bids := auction.ValidBids(&hand)
	if len(bids) == 0 {
		return domain.NoContract()
	}
	return bids[b.rng.Intn(len(bids))]
}

func (b *RandomBrain) Play(view domain.PlayerView, legal []domain.Card) domain.Card {
	if len(legal) == 0 {
		return domain.Card{}
	}
	return legal[b.rng.Intn(len(legal))]
}

// PassiveBrain never asks to play, passes whenever it may and plays the first legal card.
// It stands in for players whose turn timer ran out.
type PassiveBrain struct{}

func (PassiveBrain) Intent(view domain.PlayerView, auction *domain.Auction) bool {
	return false
}

func (PassiveBrain) Bid(view domain.PlayerView, auction *domain.Auction) domain.Contract {
	hand := view.Hand
	bids := auction.ValidBids(&hand)
	for _, c := range bids {
		if c.IsNone() {
			return c
		}
	}
	if len(bids) == 0 {
		return domain.NoContract()
	}
	return bids[0]
}

func (PassiveBrain) Play(view domain.PlayerView, legal []domain.Card) domain.Card {
	if len(legal) == 0 {
		return domain.Card{}
	}
	return legal[0]
}

// ScriptedBrain replays queued decisions and behaves like PassiveBrain once a queue runs dry.
type ScriptedBrain struct {
	Intents []bool
	Bids    []domain.Contract
	Cards   []domain.Card
}

func (b *ScriptedBrain) Intent(view domain.PlayerView, auction *domain.Auction) bool {
	if len(b.Intents) == 0 {
		return PassiveBrain{}.Intent(view, auction)
	}
	intent := b.Intents[0]
	b.Intents = b.Intents[1:]
	return intent
}

func (b *ScriptedBrain) Bid(view domain.PlayerView, auction *domain.Auction) domain.Contract {
	if len(b.Bids) == 0 {
		return PassiveBrain{}.Bid(view, auction)
	}
	bid := b.Bids[0]
	b.Bids = b.Bids[1:]
	return bid
}

func (b *ScriptedBrain) Play(view domain.PlayerView, legal []domain.Card) domain.Card {
	if len(b.Cards) == 0 {
		return PassiveBrain{}.Play(view, legal)
	}
	card := b.Cards[0]
	b.Cards = b.Cards[1:]
	return card
}
