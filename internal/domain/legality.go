package domain

// minRunLength is how many cards of the called suit the partner needs to lead away from the ace.
const minRunLength = 4

func calledAce(contract Contract) (Card, bool) {
	if contract.Kind != ContractCall {
		return Card{}, false
	}
	return Card{Suit: contract.Suit, Rank: Ace}, true
}

// isCalledPartner reports whether hand holds the called ace.
func isCalledPartner(contract Contract, hand *Hand) bool {
	ace, ok := calledAce(contract)
	return ok && hand.Holds(ace)
}

// canRun reports whether card may be led from the called suit while the ace is still held.
func canRun(contract Contract, hand *Hand, card Card) bool {
	return contract.Kind == ContractCall &&
		card.Suit == contract.Suit &&
		hand.CountSuit(contract.Suit) >= minRunLength
}

// ActionIsValid decides whether card may be played next given the play log.
// A nil hand stands for an observer that cannot see the cards; only plays that are valid
// for every possible hand are reported as valid then.
func ActionIsValid(contract Contract, log []PlayedCard, ranAway bool, card Card, hand *Hand) bool {
	trick := TrickCards(log, len(log)/PlayersPerGame)
	if hand == nil {
		return observerCanPlay(contract, trick, card)
	}

	if len(trick) == 0 {
		return canLead(contract, ranAway, card, hand)
	}

	lead := trick[0].Card
	if IsTrump(lead, contract) && hand.HoldsTrump(contract) {
		return IsTrump(card, contract)
	}
	if ace, ok := calledAce(contract); ok && lead.Suit == ace.Suit && !ranAway && hand.Holds(ace) {
		return card == ace
	}
	if hand.CountSuit(lead.Suit) > 0 {
		return card.Suit == lead.Suit
	}
	return true
}

func canLead(contract Contract, ranAway bool, card Card, hand *Hand) bool {
	if ranAway || !isCalledPartner(contract, hand) || card.Suit != contract.Suit {
		return true
	}
	// A hand made only of a short called suit has nothing else to lead.
	held := hand.CountSuit(contract.Suit)
	if held == len(hand.Cards) && held < minRunLength {
		return true
	}
	if card.Rank == Ace {
		return false
	}
	return canRun(contract, hand, card)
}

func observerCanPlay(contract Contract, trick []PlayedCard, card Card) bool {
	if contract.Kind == ContractCall {
		return false
	}
	if len(trick) == 0 {
		return true
	}
	lead := trick[0].Card
	if IsTrump(lead, contract) {
		return IsTrump(card, contract)
	}
	return card.Suit == lead.Suit
}

// LegalActions returns the held cards that may be played next, in hand order.
func LegalActions(contract Contract, log []PlayedCard, ranAway bool, hand *Hand) []Card {
	legal := make([]Card, 0, len(hand.Cards))
	for _, c := range hand.Cards {
		if ActionIsValid(contract, log, ranAway, c, hand) {
			legal = append(legal, c)
		}
	}
	return legal
}

// isRunning reports whether leading card releases the called-ace restriction.
func isRunning(contract Contract, log []PlayedCard, ranAway bool, card Card, hand *Hand) bool {
	if ranAway || len(log)%PlayersPerGame != 0 {
		return false
	}
	return isCalledPartner(contract, hand) && card.Rank != Ace && canRun(contract, hand, card)
}
