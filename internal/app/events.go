package app

import "schafkopf/internal/domain"

// EventKind identifies emitted domain events for Nakama dispatch.
type EventKind string

const (
	EventDealStarted     EventKind = "deal_started"
	EventHandDealt       EventKind = "hand_dealt"
	EventIntentAnnounced EventKind = "intent_announced"
	EventBidPlaced       EventKind = "bid_placed"
	EventContractDecided EventKind = "contract_decided"
	EventCardPlayed      EventKind = "card_played"
	EventTrickCompleted  EventKind = "trick_completed"
	EventDealEnded       EventKind = "deal_ended"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []int // seats; empty means broadcast
}

type DealStartedPayload struct {
	DealID     string
	DealNumber int
	Forehand   int
}

type HandDealtPayload struct {
	Seat int
	Hand []domain.Card
}

type IntentAnnouncedPayload struct {
	Seat       int
	Intent     bool
	NextBidder int // domain.NoSeat when the auction is over
}

type BidPlacedPayload struct {
	Seat       int
	Bid        domain.Contract // NoContract() is a pass
	NextBidder int
}

type ContractDecidedPayload struct {
	Contract    domain.Contract
	Declarer    int
	FirstPlayer int
}

type CardPlayedPayload struct {
	Seat       int
	Card       domain.Card
	Trick      int
	NextPlayer int
}

type TrickCompletedPayload struct {
	Trick  int
	Winner int
	Points int
}

type DealEndedPayload struct {
	Summary DealSummary
	Score   [domain.PlayersPerGame]int
}
