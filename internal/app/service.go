package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"schafkopf/internal/domain"

	"github.com/google/uuid"
)

// Service contains Schafkopf use-cases operating on domain state.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

var (
	ErrNoDeal         = errors.New("no deal on the table")
	ErrDealInProgress = errors.New("deal still in progress")
	ErrNotBidding     = errors.New("deal is not in the bidding stage")
	ErrNotPlaying     = errors.New("deal is not in the playing stage")
	ErrUnknownSeat    = errors.New("seat out of range")
)

// NewTable opens a fresh match context; the first deal is led by seat 0.
func (s *Service) NewTable() *Table {
	return &Table{ID: uuid.NewString()}
}

// StartDeal shuffles, deals and opens the auction for the table's next forehand.
func (s *Service) StartDeal(table *Table) ([]Event, error) {
	if table.InProgress() {
		return nil, ErrDealInProgress
	}

	forehand := table.NextForehand
	deal := &Deal{
		ID:       uuid.NewString(),
		Number:   table.DealsPlayed + 1,
		Forehand: forehand,
		Auction:  domain.NewAuction(forehand),
		Game:     domain.NewGame(forehand, s.rng),
	}
	table.Deal = deal

	events := make([]Event, 0, domain.PlayersPerGame+1)
	events = append(events, Event{
		Kind: EventDealStarted,
		Payload: DealStartedPayload{
			DealID:     deal.ID,
			DealNumber: deal.Number,
			Forehand:   forehand,
		},
	})
	for seat := 0; seat < domain.PlayersPerGame; seat++ {
		hand := deal.Game.Hand(seat).Cards
		domain.SortHand(hand)
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{Seat: seat, Hand: hand},
			Recipients: []int{seat},
		})
	}
	return events, nil
}

func (s *Service) biddingDeal(table *Table) (*Deal, error) {
	if table.Deal == nil {
		return nil, ErrNoDeal
	}
	if table.Deal.Stage() != StageBidding {
		return nil, ErrNotBidding
	}
	return table.Deal, nil
}

// AnnounceIntent records whether seat wants to bid.
func (s *Service) AnnounceIntent(table *Table, seat int, intent bool) ([]Event, error) {
	deal, err := s.biddingDeal(table)
	if err != nil {
		return nil, err
	}
	if err := deal.Auction.AnnounceIntent(seat, intent); err != nil {
		return nil, err
	}

	next, _ := deal.Auction.NextBidder()
	events := []Event{{
		Kind:    EventIntentAnnounced,
		Payload: IntentAnnouncedPayload{Seat: seat, Intent: intent, NextBidder: next},
	}}
	return s.closeAuction(deal, events)
}

// LegalBids lists the bids seat could place with its hand right now.
func (s *Service) LegalBids(table *Table, seat int) ([]domain.Contract, error) {
	deal, err := s.biddingDeal(table)
	if err != nil {
		return nil, err
	}
	if seat < 0 || seat >= domain.PlayersPerGame {
		return nil, ErrUnknownSeat
	}
	hand := deal.Game.Hand(seat)
	return deal.Auction.ValidBids(&hand), nil
}

// Bid places seat's bid; domain.NoContract() passes.
func (s *Service) Bid(table *Table, seat int, bid domain.Contract) ([]Event, error) {
	deal, err := s.biddingDeal(table)
	if err != nil {
		return nil, err
	}
	if seat < 0 || seat >= domain.PlayersPerGame {
		return nil, ErrUnknownSeat
	}
	if deal.Auction.BiddingStarted() {
		hand := deal.Game.Hand(seat)
		if !containsContract(deal.Auction.ValidBids(&hand), bid) {
			return nil, fmt.Errorf("%w: %s not allowed for seat %d", domain.ErrIllegalBid, bid, seat)
		}
	}
	if err := deal.Auction.Bid(seat, bid); err != nil {
		return nil, err
	}

	next, _ := deal.Auction.NextBidder()
	events := []Event{{
		Kind:    EventBidPlaced,
		Payload: BidPlacedPayload{Seat: seat, Bid: bid, NextBidder: next},
	}}
	return s.closeAuction(deal, events)
}

// closeAuction hands the winning contract to the game once nobody can bid anymore.
func (s *Service) closeAuction(deal *Deal, events []Event) ([]Event, error) {
	if !deal.Auction.IsFinished() {
		return events, nil
	}
	contract := deal.Auction.WinningContract()
	declarer := deal.Auction.HighestBidder()
	if err := deal.Game.AssignContract(contract, declarer); err != nil {
		return nil, fmt.Errorf("assign contract: %w", err)
	}
	return append(events, Event{
		Kind: EventContractDecided,
		Payload: ContractDecidedPayload{
			Contract:    contract,
			Declarer:    declarer,
			FirstPlayer: deal.Game.NextPlayer(),
		},
	}), nil
}

// LegalCards lists the cards seat may play now.
func (s *Service) LegalCards(table *Table, seat int) ([]domain.Card, error) {
	if table.Deal == nil {
		return nil, ErrNoDeal
	}
	if table.Deal.Stage() != StagePlaying {
		return nil, ErrNotPlaying
	}
	return table.Deal.Game.LegalActions(seat), nil
}

// PlayCard processes a play action and emits resulting events.
func (s *Service) PlayCard(table *Table, seat int, card domain.Card) ([]Event, error) {
	if table.Deal == nil {
		return nil, ErrNoDeal
	}
	deal := table.Deal
	if deal.Stage() == StageBidding {
		return nil, ErrNotPlaying
	}
	game := deal.Game
	trick := game.Trick()
	if err := game.PlayCard(seat, card); err != nil {
		return nil, err
	}

	events := []Event{{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			Seat:       seat,
			Card:       card,
			Trick:      trick,
			NextPlayer: game.NextPlayer(),
		},
	}}

	if game.PlayCount()%domain.PlayersPerGame == 0 {
		winner, _ := game.TrickWinner(trick)
		events = append(events, Event{
			Kind: EventTrickCompleted,
			Payload: TrickCompletedPayload{
				Trick:  trick,
				Winner: winner,
				Points: domain.TrickPoints(game.Played(), trick),
			},
		})
	}

	if game.IsOver() {
		summary, err := s.finishDeal(table)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Kind:    EventDealEnded,
			Payload: DealEndedPayload{Summary: summary, Score: table.Score},
		})
	}
	return events, nil
}

func (s *Service) finishDeal(table *Table) (DealSummary, error) {
	deal := table.Deal
	result, err := deal.Game.Result()
	if err != nil {
		return DealSummary{}, err
	}
	for seat, points := range result.Points {
		table.Score[seat] += points
	}
	table.DealsPlayed++
	table.NextForehand = (deal.Forehand + 1) % domain.PlayersPerGame

	summary := DealSummary{
		DealID:   deal.ID,
		Number:   deal.Number,
		Forehand: deal.Forehand,
		Contract: result.Contract,
		Declarer: result.Declarer,
		Result:   result,
		Plays:    deal.Game.Played(),
	}
	table.History = append(table.History, summary)
	return summary, nil
}

// CurrentActor returns the seat expected to act next, if any.
func (s *Service) CurrentActor(table *Table) (int, bool) {
	if table.Deal == nil {
		return domain.NoSeat, false
	}
	switch table.Deal.Stage() {
	case StageBidding:
		return table.Deal.Auction.NextBidder()
	case StagePlaying:
		return table.Deal.Game.NextPlayer(), true
	default:
		return domain.NoSeat, false
	}
}

func containsContract(list []domain.Contract, c domain.Contract) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
