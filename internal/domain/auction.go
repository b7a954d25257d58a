package domain

import "fmt"

// bidUniverse is every contract that can be bid, in the order valid bids are listed.
var bidUniverse = []Contract{
	Call(Acorns), Call(Bells), Call(Leaves), Call(Hearts),
	Solo(Acorns), Solo(Bells), Solo(Leaves), Solo(Hearts),
	Wenz(),
}

// Auction decides the contract of a deal. Every player first announces whether they want
// to play; afterwards the interested players outbid each other until one is left.
type Auction struct {
	highestBid    Contract
	highestBidder int
	nextBidder    int
	intent        [PlayersPerGame]bool
	intentCount   int
}

// NewAuction starts an auction where startingBidder announces first.
func NewAuction(startingBidder int) *Auction {
	return &Auction{
		highestBidder: startingBidder,
		nextBidder:    startingBidder,
	}
}

// Clone returns an independent copy, safe to hand to a decision maker.
func (a *Auction) Clone() *Auction {
	c := *a
	return &c
}

// AnnounceIntent records whether seat wants to take part in the bidding.
func (a *Auction) AnnounceIntent(seat int, intent bool) error {
	if a.intentCount == PlayersPerGame {
		return ErrIntentPhaseOver
	}
	if seat != a.nextBidder {
		return fmt.Errorf("%w: seat %d, expected %d", ErrOutOfTurn, seat, a.nextBidder)
	}
	a.intent[seat] = intent
	a.intentCount++
	a.updateNextBidder()
	return nil
}

// ValidBids lists the bids that would be accepted now. NoContract() in the list is a pass.
// With a hand, call games the hand may not announce are removed: a suit whose ace it holds,
// and a suit where it holds no non-trump card to call with.
func (a *Auction) ValidBids(hand *Hand) []Contract {
	bids := make([]Contract, 0, len(bidUniverse)+1)
	switch a.highestBid.Kind {
	case ContractSolo:
		return bids
	case ContractCall:
		for _, c := range bidUniverse {
			if c.Kind != ContractCall {
				bids = append(bids, c)
			}
		}
		bids = append(bids, NoContract())
	case ContractWenz:
		for _, c := range bidUniverse {
			if c.Kind != ContractCall && c.Kind != ContractWenz {
				bids = append(bids, c)
			}
		}
		bids = append(bids, NoContract())
	default:
		bids = append(bids, bidUniverse...)
	}

	if hand == nil {
		return bids
	}
	filtered := bids[:0]
	for _, c := range bids {
		if c.Kind == ContractCall && !canCall(c, hand) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

func canCall(contract Contract, hand *Hand) bool {
	if hand.Holds(Card{Suit: contract.Suit, Rank: Ace}) {
		return false
	}
	for _, c := range hand.Cards {
		if c.Suit == contract.Suit && !IsTrump(c, contract) {
			return true
		}
	}
	return false
}

// Bid places seat's bid. NoContract() passes and removes seat from the bidding.
func (a *Auction) Bid(seat int, bid Contract) error {
	if a.intentCount < PlayersPerGame {
		return ErrIntentPhaseActive
	}
	if a.IsFinished() {
		return ErrAuctionFinished
	}
	if seat != a.nextBidder {
		return fmt.Errorf("%w: seat %d, expected %d", ErrOutOfTurn, seat, a.nextBidder)
	}
	if !containsContract(a.ValidBids(nil), bid) {
		return fmt.Errorf("%w: %s", ErrIllegalBid, bid)
	}
	if bid.IsNone() {
		a.intent[seat] = false
	} else {
		a.highestBid = bid
		a.highestBidder = seat
	}
	a.updateNextBidder()
	return nil
}

func (a *Auction) updateNextBidder() {
	if a.IsFinished() {
		a.nextBidder = NoSeat
		return
	}
	if a.intentCount < PlayersPerGame {
		a.nextBidder = (a.nextBidder + 1) % PlayersPerGame
		return
	}

	bidders := 0
	for _, i := range a.intent {
		if i {
			bidders++
		}
	}
	if bidders == 0 || (bidders == 1 && !a.highestBid.IsNone()) {
		a.nextBidder = NoSeat
		return
	}
	for {
		a.nextBidder = (a.nextBidder + 1) % PlayersPerGame
		if a.intent[a.nextBidder] {
			return
		}
	}
}

// IsFinished reports whether no further bid can be made.
func (a *Auction) IsFinished() bool {
	return a.nextBidder == NoSeat || len(a.ValidBids(nil)) == 0
}

// WinningContract is the contract to play once the auction is finished. Ramsch is played
// when nobody bid. Before the end it returns NoContract().
func (a *Auction) WinningContract() Contract {
	if !a.IsFinished() {
		return NoContract()
	}
	if a.highestBid.IsNone() {
		return Ramsch()
	}
	return a.highestBid
}

// NextBidder returns the seat expected to act; ok is false once nobody is left.
func (a *Auction) NextBidder() (seat int, ok bool) {
	return a.nextBidder, a.nextBidder != NoSeat
}

// BiddingStarted reports whether all four intents have been announced.
func (a *Auction) BiddingStarted() bool {
	return a.intentCount == PlayersPerGame
}

func (a *Auction) HighestBid() Contract { return a.highestBid }

// HighestBidder is the seat holding the highest bid. Before any bid it is the starting bidder.
func (a *Auction) HighestBidder() int { return a.highestBidder }

// Intent reports whether seat still wants to play.
func (a *Auction) Intent(seat int) bool {
	if !validSeat(seat) {
		return false
	}
	return a.intent[seat]
}

func containsContract(list []Contract, c Contract) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
