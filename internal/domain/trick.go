package domain

import "sort"

// NoSeat marks the absence of a player, e.g. an unresolved trick winner.
const NoSeat = -1

// PlayersPerGame is fixed at four for Schafkopf.
const PlayersPerGame = 4

// TricksPerGame is the number of tricks in a deal.
const TricksPerGame = 8

// PlayedCard is one entry of the play log.
type PlayedCard struct {
	Card Card
	Seat int
}

// TrickCards returns the slice of log that belongs to trick (possibly fewer than four entries).
func TrickCards(log []PlayedCard, trick int) []PlayedCard {
	start := trick * PlayersPerGame
	if trick < 0 || start >= len(log) {
		return nil
	}
	end := start + PlayersPerGame
	if end > len(log) {
		end = len(log)
	}
	return log[start:end]
}

// CompareInTrick orders two cards played into the same trick. It returns a positive value
// when a beats b, a negative value when b beats a and zero when neither can win against the other.
func CompareInTrick(a, b Card, contract Contract, lead Suit) int {
	aTrump, bTrump := IsTrump(a, contract), IsTrump(b, contract)
	switch {
	case aTrump && !bTrump:
		return 1
	case !aTrump && bTrump:
		return -1
	case aTrump && bTrump:
		return compareTrumps(a, b)
	}

	aLead, bLead := a.Suit == lead, b.Suit == lead
	switch {
	case aLead && !bLead:
		return 1
	case !aLead && bLead:
		return -1
	case aLead && bLead:
		return int(a.Rank) - int(b.Rank)
	}
	return 0
}

// compareTrumps ranks trumps by rank first, suit breaking ties.
func compareTrumps(a, b Card) int {
	if a.Rank != b.Rank {
		return int(a.Rank) - int(b.Rank)
	}
	return int(a.Suit) - int(b.Suit)
}

// TrickWinner resolves a complete trick. ok is false when the trick has fewer than four plays.
func TrickWinner(log []PlayedCard, trick int, contract Contract) (seat int, ok bool) {
	cards := TrickCards(log, trick)
	if len(cards) < PlayersPerGame {
		return NoSeat, false
	}
	lead := cards[0].Card.Suit
	best := cards[0]
	for _, pc := range cards[1:] {
		if CompareInTrick(pc.Card, best.Card, contract, lead) > 0 {
			best = pc
		}
	}
	return best.Seat, true
}

// TrickPoints sums the card points of one trick.
func TrickPoints(log []PlayedCard, trick int) int {
	total := 0
	for _, pc := range TrickCards(log, trick) {
		total += pc.Card.Points()
	}
	return total
}

func sortCards(cards []Card, less func(a, b Card) bool) {
	sort.Slice(cards, func(i, j int) bool { return less(cards[i], cards[j]) })
}

// SortHand orders cards by suit, then rank.
func SortHand(cards []Card) {
	sortCards(cards, func(a, b Card) bool {
		if a.Suit != b.Suit {
			return a.Suit < b.Suit
		}
		return a.Rank < b.Rank
	})
}
