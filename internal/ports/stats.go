package ports

import "context"

// PlayerStats is the running record kept per player account.
type PlayerStats struct {
	DealsPlayed   int `json:"deals_played"`
	DealsDeclared int `json:"deals_declared"`
	DeclarerWins  int `json:"declarer_wins"`
	Points        int `json:"points"`
}

// StatsUpdate is one player's share of a finished deal.
type StatsUpdate struct {
	UserID      string
	Declared    bool
	DeclarerWon bool
	Points      int
}

// Apply folds u into s.
func (s PlayerStats) Apply(u StatsUpdate) PlayerStats {
	s.DealsPlayed++
	s.Points += u.Points
	if u.Declared {
		s.DealsDeclared++
		if u.DeclarerWon {
			s.DeclarerWins++
		}
	}
	return s
}

// StatsPort persists player statistics.
type StatsPort interface {
	// InitStatsOnce creates an empty record for userID.
	// Returns created=false when a record already exists.
	InitStatsOnce(ctx context.Context, userID string) (bool, error)

	// RecordDeal applies the updates of one finished deal.
	// Bots and empty user IDs are skipped by callers, not by implementations.
	RecordDeal(ctx context.Context, updates []StatsUpdate) error
}
