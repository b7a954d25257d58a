package bot

import (
	"schafkopf/internal/domain"
)

// Brain is the interface that all bot strategies must implement.
// Every call receives a snapshot; implementations may keep it.
type Brain interface {
	Intent(view domain.PlayerView, auction *domain.Auction) bool
	Bid(view domain.PlayerView, auction *domain.Auction) domain.Contract
	Play(view domain.PlayerView, legal []domain.Card) domain.Card
}
