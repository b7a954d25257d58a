package main

import (
	"context"
	"testing"

	"schafkopf/internal/app"

	"go.uber.org/zap"
)

func TestSimulateMatch(t *testing.T) {
	result := &tally{byContract: make(map[string]int)}
	for seed := int64(1); seed <= 5; seed++ {
		if err := simulateMatch(context.Background(), zap.NewNop(), seed, 3, result); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
	}
	if result.deals != 15 {
		t.Fatalf("deals = %d, want 15", result.deals)
	}
	if result.failedMatches != 0 {
		t.Fatalf("failed matches = %d", result.failedMatches)
	}
}

func TestSimulateMatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := &tally{byContract: make(map[string]int)}
	if err := simulateMatch(ctx, zap.NewNop(), 7, 1, result); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if result.failedMatches != 1 || result.invalidDeals != 0 {
		t.Fatalf("tally = %d failed, %d invalid", result.failedMatches, result.invalidDeals)
	}
}

func TestCheckDeal_RejectsIncompleteDeal(t *testing.T) {
	if err := checkDeal(app.DealSummary{DealID: "d"}); err == nil {
		t.Fatal("expected error for deal without plays")
	}
}

func TestRun_Pool(t *testing.T) {
	opts := options{matches: 6, deals: 2, seed: 11, workers: 3}
	result := run(context.Background(), zap.NewNop(), opts)
	if result.deals != 12 {
		t.Fatalf("deals = %d, want 12", result.deals)
	}
}
