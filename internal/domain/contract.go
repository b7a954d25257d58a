package domain

import (
	"fmt"
	"strings"
)

// ContractKind identifies the game type of a contract.
type ContractKind int

const (
	// ContractNone is the "no bid yet" sentinel and the pass marker during the auction.
	ContractNone ContractKind = iota
	ContractCall
	ContractSolo
	ContractWenz
	ContractRamsch
)

// Contract is the game type in force for a deal. Suit is only meaningful for Call and Solo.
type Contract struct {
	Kind ContractKind
	Suit Suit
}

// Call is a partner game where the declarer calls the ace of suit.
func Call(suit Suit) Contract { return Contract{Kind: ContractCall, Suit: suit} }

// Solo is a one-against-three game with suit as trump suit.
func Solo(suit Suit) Contract { return Contract{Kind: ContractSolo, Suit: suit} }

// Wenz is a one-against-three game where only the unders are trump.
func Wenz() Contract { return Contract{Kind: ContractWenz} }

// Ramsch is played when nobody bids; every player plays for themselves.
func Ramsch() Contract { return Contract{Kind: ContractRamsch} }

// NoContract is the empty sentinel.
func NoContract() Contract { return Contract{} }

// IsNone reports whether c is the empty sentinel.
func (c Contract) IsNone() bool {
	return c.Kind == ContractNone
}

func (c Contract) String() string {
	switch c.Kind {
	case ContractCall:
		return "call-" + c.Suit.String()
	case ContractSolo:
		return "solo-" + c.Suit.String()
	case ContractWenz:
		return "wenz"
	case ContractRamsch:
		return "ramsch"
	default:
		return "none"
	}
}

// ParseContract is the inverse of Contract.String.
func ParseContract(s string) (Contract, error) {
	switch s {
	case "none", "":
		return NoContract(), nil
	case "wenz":
		return Wenz(), nil
	case "ramsch":
		return Ramsch(), nil
	}
	kind, suitName, ok := strings.Cut(s, "-")
	if !ok {
		return Contract{}, fmt.Errorf("unknown contract %q", s)
	}
	suit, err := ParseSuit(suitName)
	if err != nil {
		return Contract{}, fmt.Errorf("contract %q: %w", s, err)
	}
	switch kind {
	case "call":
		return Call(suit), nil
	case "solo":
		return Solo(suit), nil
	default:
		return Contract{}, fmt.Errorf("unknown contract %q", s)
	}
}

// IsTrump reports whether card is a trump under contract.
func IsTrump(card Card, contract Contract) bool {
	switch contract.Kind {
	case ContractCall, ContractRamsch:
		return card.Suit == Hearts || card.Rank == Ober || card.Rank == Under
	case ContractSolo:
		return card.Suit == contract.Suit || card.Rank == Ober || card.Rank == Under
	case ContractWenz:
		return card.Rank == Under
	default:
		return false
	}
}

// TrumpOrder returns every trump of contract, weakest first.
func TrumpOrder(contract Contract) []Card {
	trumps := make([]Card, 0, 14)
	for _, c := range NewDeck() {
		if IsTrump(c, contract) {
			trumps = append(trumps, c)
		}
	}
	sortCards(trumps, func(a, b Card) bool { return compareTrumps(a, b) < 0 })
	return trumps
}
