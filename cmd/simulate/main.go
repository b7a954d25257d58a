// Command simulate plays bot-only Schafkopf matches through the app layer and reports
// how the deals were decided. It is used to shake out rule bugs over many seeds.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"schafkopf/internal/app"
	"schafkopf/internal/bot"
	"schafkopf/internal/domain"

	"go.uber.org/zap"
)

const totalCardPoints = 120

type options struct {
	matches    int
	deals      int
	seed       int64
	workers    int
	identities string
	verbose    bool
}

// tally aggregates the outcome of every simulated deal.
type tally struct {
	mu            sync.Mutex
	deals         int
	byContract    map[string]int
	declarerWins  int
	schneider     int
	schwarz       int
	ramschLosses  [domain.PlayersPerGame]int
	invalidDeals  int
	failedMatches int
}

func (t *tally) add(summary app.DealSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deals++
	t.byContract[contractFamily(summary.Contract)]++
	r := summary.Result
	if summary.Contract.Kind == domain.ContractRamsch {
		t.ramschLosses[r.RamschLoser]++
		return
	}
	if r.DeclarerWon {
		t.declarerWins++
	}
	if r.Schneider {
		t.schneider++
	}
	if r.Schwarz {
		t.schwarz++
	}
}

func (t *tally) fail(invalid bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if invalid {
		t.invalidDeals++
	}
	t.failedMatches++
}

func contractFamily(c domain.Contract) string {
	switch c.Kind {
	case domain.ContractCall:
		return "call"
	case domain.ContractSolo:
		return "solo"
	default:
		return c.String()
	}
}

func main() {
	var opts options
	flag.IntVar(&opts.matches, "matches", 100, "number of matches to simulate")
	flag.IntVar(&opts.deals, "deals", 8, "deals per match")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "base seed; match i uses seed+i")
	flag.IntVar(&opts.workers, "workers", 4, "matches simulated concurrently")
	flag.StringVar(&opts.identities, "identities", "", "optional bot roster file; styles pick the brains")
	flag.BoolVar(&opts.verbose, "v", false, "log every deal")
	flag.Parse()

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if opts.matches <= 0 || opts.deals <= 0 || opts.workers <= 0 {
		logger.Fatal("matches, deals and workers must be positive",
			zap.Int("matches", opts.matches),
			zap.Int("deals", opts.deals),
			zap.Int("workers", opts.workers),
		)
	}
	if opts.identities != "" {
		if err := bot.LoadIdentities(opts.identities); err != nil {
			logger.Fatal("failed to load bot identities", zap.String("path", opts.identities), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	result := run(ctx, logger, opts)
	logger.Info("simulation finished",
		zap.Int64("seed", opts.seed),
		zap.Int("deals", result.deals),
		zap.Any("contracts", result.byContract),
		zap.Int("declarer_wins", result.declarerWins),
		zap.Int("schneider", result.schneider),
		zap.Int("schwarz", result.schwarz),
		zap.Ints("ramsch_losses", result.ramschLosses[:]),
		zap.Int("invalid_deals", result.invalidDeals),
		zap.Int("failed_matches", result.failedMatches),
		zap.Duration("elapsed", time.Since(started)),
	)
	if result.failedMatches > 0 {
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// run fans the matches out to a fixed pool of workers.
func run(ctx context.Context, logger *zap.Logger, opts options) *tally {
	result := &tally{byContract: make(map[string]int)}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			log := logger.With(zap.Int("worker", worker))
			for match := range jobs {
				seed := opts.seed + int64(match)
				if err := simulateMatch(ctx, log, seed, opts.deals, result); err != nil {
					log.Error("match failed", zap.Int("match", match), zap.Int64("seed", seed), zap.Error(err))
				}
			}
		}(w)
	}

feed:
	for match := 0; match < opts.matches; match++ {
		select {
		case jobs <- match:
		case <-ctx.Done():
			logger.Warn("interrupted", zap.Int("scheduled", match))
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return result
}

func simulateMatch(ctx context.Context, logger *zap.Logger, seed int64, deals int, result *tally) error {
	rng := rand.New(rand.NewSource(seed))
	svc := app.NewService(rng)
	table := svc.NewTable()

	var deciders [domain.PlayersPerGame]app.Decider
	for seat := range deciders {
		agent, err := bot.NewAgent(bot.GetBotIdentity(seat), rng)
		if err != nil {
			result.fail(false)
			return err
		}
		deciders[seat] = agent
	}

	for i := 0; i < deals; i++ {
		summary, err := svc.PlayDeal(ctx, table, deciders, nil)
		if err != nil {
			result.fail(false)
			return fmt.Errorf("deal %d: %w", i+1, err)
		}
		if err := checkDeal(summary); err != nil {
			result.fail(true)
			return err
		}
		result.add(summary)
		logger.Debug("deal finished",
			zap.String("table", table.ID),
			zap.Int("number", summary.Number),
			zap.String("contract", summary.Contract.String()),
			zap.Int("declarer", summary.Declarer),
			zap.Ints("points", summary.Result.Points[:]),
		)
	}

	var sum int
	for _, s := range table.Score {
		sum += s
	}
	if sum != deals*totalCardPoints {
		result.fail(true)
		return fmt.Errorf("table score %v sums to %d, want %d", table.Score, sum, deals*totalCardPoints)
	}
	return nil
}

// checkDeal verifies the invariants every finished deal must hold.
func checkDeal(summary app.DealSummary) error {
	if len(summary.Plays) != domain.DeckSize {
		return fmt.Errorf("deal %s: %d cards played", summary.DealID, len(summary.Plays))
	}
	var points, tricks int
	for seat := 0; seat < domain.PlayersPerGame; seat++ {
		points += summary.Result.Points[seat]
		tricks += summary.Result.Tricks[seat]
	}
	if points != totalCardPoints {
		return fmt.Errorf("deal %s: card points sum to %d", summary.DealID, points)
	}
	if tricks != domain.DeckSize/domain.PlayersPerGame {
		return fmt.Errorf("deal %s: %d tricks taken", summary.DealID, tricks)
	}
	return nil
}
