package app

import "schafkopf/internal/domain"

// DealStage is the coarse position of a deal in its lifecycle.
type DealStage string

const (
	StageBidding DealStage = "bidding"
	StagePlaying DealStage = "playing"
	StageEnded   DealStage = "ended"
)

// Table is the match context owned by one orchestrator: the running score and the
// deal currently being played.
type Table struct {
	ID           string
	Score        [domain.PlayersPerGame]int
	NextForehand int
	DealsPlayed  int
	Deal         *Deal
	History      []DealSummary
}

// Deal couples the auction and the game of one hand of cards.
type Deal struct {
	ID       string
	Number   int
	Forehand int
	Auction  *domain.Auction
	Game     *domain.Game
}

// Stage derives where the deal stands.
func (d *Deal) Stage() DealStage {
	switch d.Game.Phase() {
	case domain.PhaseUndecided:
		return StageBidding
	case domain.PhaseOver:
		return StageEnded
	default:
		return StagePlaying
	}
}

// DealSummary is the record kept for every finished deal.
type DealSummary struct {
	DealID   string
	Number   int
	Forehand int
	Contract domain.Contract
	Declarer int
	Result   domain.Result
	Plays    []domain.PlayedCard
}

// InProgress reports whether a deal is being bid or played.
func (t *Table) InProgress() bool {
	return t.Deal != nil && t.Deal.Stage() != StageEnded
}

// LastSummary returns the most recent finished deal.
func (t *Table) LastSummary() (DealSummary, bool) {
	if len(t.History) == 0 {
		return DealSummary{}, false
	}
	return t.History[len(t.History)-1], true
}
