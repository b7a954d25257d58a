package app

import (
	"context"
	"fmt"

	"schafkopf/internal/domain"
)

// Decider makes the choices of one seat. Implementations receive snapshots and may keep them.
type Decider interface {
	Intent(view domain.PlayerView, auction *domain.Auction) bool
	Bid(view domain.PlayerView, auction *domain.Auction) domain.Contract
	Play(view domain.PlayerView, legal []domain.Card) domain.Card
}

// EventSink receives every event emitted while a deal is driven. It may be nil.
type EventSink func(Event)

// PlayDeal deals the next hand on table and drives it to the end by asking the deciders.
// An illegal choice aborts the deal with the engine's error; ctx is checked before every action.
func (s *Service) PlayDeal(ctx context.Context, table *Table, deciders [domain.PlayersPerGame]Decider, sink EventSink) (DealSummary, error) {
	events, err := s.StartDeal(table)
	if err != nil {
		return DealSummary{}, err
	}
	emit(sink, events)

	deal := table.Deal
	for deal.Stage() != StageEnded {
		if err := ctx.Err(); err != nil {
			return DealSummary{}, err
		}
		seat, ok := s.CurrentActor(table)
		if !ok {
			return DealSummary{}, fmt.Errorf("deal %s: no seat to act", deal.ID)
		}
		events, err = s.Step(table, seat, deciders[seat])
		if err != nil {
			return DealSummary{}, fmt.Errorf("seat %d: %w", seat, err)
		}
		emit(sink, events)
	}

	summary, _ := table.LastSummary()
	return summary, nil
}

// Step asks decider for seat's next action in the current stage and applies it.
func (s *Service) Step(table *Table, seat int, decider Decider) ([]Event, error) {
	deal := table.Deal
	if deal == nil {
		return nil, ErrNoDeal
	}
	if seat < 0 || seat >= domain.PlayersPerGame {
		return nil, ErrUnknownSeat
	}
	view := deal.Game.View(seat)

	switch deal.Stage() {
	case StageBidding:
		if !deal.Auction.BiddingStarted() {
			return s.AnnounceIntent(table, seat, decider.Intent(view, deal.Auction.Clone()))
		}
		return s.Bid(table, seat, decider.Bid(view, deal.Auction.Clone()))
	case StagePlaying:
		return s.PlayCard(table, seat, decider.Play(view, deal.Game.LegalActions(seat)))
	default:
		return nil, ErrNotPlaying
	}
}

func emit(sink EventSink, events []Event) {
	if sink == nil {
		return
	}
	for _, ev := range events {
		sink(ev)
	}
}
