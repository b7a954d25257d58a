package ports

import (
	"context"
	"time"
)

// DealRecord is the persisted form of one finished deal.
type DealRecord struct {
	MatchID    string    `json:"match_id"`
	DealID     string    `json:"deal_id"`
	Number     int       `json:"number"`
	Forehand   int       `json:"forehand"`
	Contract   string    `json:"contract"`
	Declarer   int       `json:"declarer"`
	Points     [4]int    `json:"points"`
	Outcome    string    `json:"outcome"`
	Plays      []string  `json:"plays"`
	Seats      [4]string `json:"seats"`
	FinishedAt time.Time `json:"finished_at"`
}

// DealArchivePort stores finished deals for later review.
type DealArchivePort interface {
	SaveDeal(ctx context.Context, record DealRecord) error
}
