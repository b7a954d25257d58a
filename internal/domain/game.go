package domain

import (
	"fmt"
	"math/rand"
)

// Phase represents the lifecycle stage of a deal.
type Phase string

const (
	// PhaseUndecided is a freshly dealt game waiting for its contract.
	PhaseUndecided Phase = "undecided"
	// PhaseReady has a contract but no card played yet.
	PhaseReady Phase = "ready"
	// PhaseInProgress is between the first and the last card.
	PhaseInProgress Phase = "in_progress"
	// PhaseOver is reached after all 32 cards were played.
	PhaseOver Phase = "over"
)

// Game is the authoritative state of one deal.
type Game struct {
	hands    [PlayersPerGame]Hand
	contract Contract
	declarer int
	played   []PlayedCard
	ranAway  bool
	next     int
	forehand int
}

// NewGame deals a shuffled deck to four players; forehand leads the first trick.
func NewGame(forehand int, rng *rand.Rand) *Game {
	dealer := NewDealer(rng)
	g := &Game{
		declarer: NoSeat,
		next:     forehand,
		forehand: forehand,
		played:   make([]PlayedCard, 0, DeckSize),
	}
	for i := range g.hands {
		g.hands[i] = dealer.Deal()
	}
	return g
}

// NewGameFromHands builds a game from predetermined hands. Every hand needs eight cards and
// together they must form the full deck.
func NewGameFromHands(forehand int, hands [PlayersPerGame][]Card) (*Game, error) {
	if !validSeat(forehand) {
		return nil, fmt.Errorf("%w: forehand %d", ErrInvalidDeal, forehand)
	}
	seen := make(map[Card]bool, DeckSize)
	g := &Game{
		declarer: NoSeat,
		next:     forehand,
		forehand: forehand,
		played:   make([]PlayedCard, 0, DeckSize),
	}
	for i, cards := range hands {
		if len(cards) != HandSize {
			return nil, fmt.Errorf("%w: seat %d holds %d cards", ErrInvalidDeal, i, len(cards))
		}
		for _, c := range cards {
			if !c.Suit.Valid() || !c.Rank.Valid() {
				return nil, fmt.Errorf("%w: unknown card %v", ErrInvalidDeal, c)
			}
			if seen[c] {
				return nil, fmt.Errorf("%w: duplicate card %s", ErrInvalidDeal, c)
			}
			seen[c] = true
		}
		g.hands[i] = Hand{Cards: append([]Card(nil), cards...)}
	}
	return g, nil
}

func validSeat(seat int) bool {
	return seat >= 0 && seat < PlayersPerGame
}

// AssignContract fixes the contract and its declarer. Only allowed before it is set.
func (g *Game) AssignContract(contract Contract, declarer int) error {
	if !g.contract.IsNone() {
		return ErrContractAssigned
	}
	if contract.IsNone() {
		return fmt.Errorf("%w: contract must not be none", ErrInvalidContract)
	}
	if (contract.Kind == ContractCall || contract.Kind == ContractSolo) && !contract.Suit.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidContract, contract)
	}
	// The called ace must be a plain card, so hearts cannot be called.
	if contract.Kind == ContractCall && IsTrump(Card{Suit: contract.Suit, Rank: Ace}, contract) {
		return fmt.Errorf("%w: %v calls a trump", ErrInvalidContract, contract)
	}
	if !validSeat(declarer) {
		return fmt.Errorf("%w: declarer %d", ErrInvalidContract, declarer)
	}
	g.contract = contract
	g.declarer = declarer
	return nil
}

// PlayCard plays card for seat and advances the turn.
func (g *Game) PlayCard(seat int, card Card) error {
	if g.IsOver() {
		return ErrAlreadyOver
	}
	if g.contract.IsNone() {
		return ErrNotReady
	}
	if seat != g.next {
		return fmt.Errorf("%w: seat %d, expected %d", ErrOutOfTurn, seat, g.next)
	}
	hand := &g.hands[seat]
	if !hand.Holds(card) {
		return fmt.Errorf("%w: %s not held by seat %d", ErrIllegalPlay, card, seat)
	}
	if !ActionIsValid(g.contract, g.played, g.ranAway, card, hand) {
		return fmt.Errorf("%w: %s", ErrIllegalPlay, card)
	}

	if isRunning(g.contract, g.played, g.ranAway, card, hand) {
		g.ranAway = true
	}
	hand.play(card)
	g.played = append(g.played, PlayedCard{Card: card, Seat: seat})
	g.advance()
	return nil
}

func (g *Game) advance() {
	if len(g.played)%PlayersPerGame == 0 {
		if winner, ok := TrickWinner(g.played, len(g.played)/PlayersPerGame-1, g.contract); ok {
			g.next = winner
		}
		return
	}
	g.next = (g.next + 1) % PlayersPerGame
}

// IsReadyToPlay reports whether a contract is set and nothing has been played yet.
func (g *Game) IsReadyToPlay() bool {
	if g.contract.IsNone() || len(g.played) != 0 {
		return false
	}
	for _, h := range g.hands {
		if len(h.Cards) != HandSize || len(h.Played) != 0 {
			return false
		}
	}
	return true
}

// IsOver reports whether all cards were played.
func (g *Game) IsOver() bool {
	return len(g.played) == DeckSize
}

// Phase derives the lifecycle stage from the state.
func (g *Game) Phase() Phase {
	switch {
	case g.IsOver():
		return PhaseOver
	case len(g.played) > 0:
		return PhaseInProgress
	case g.contract.IsNone():
		return PhaseUndecided
	default:
		return PhaseReady
	}
}

// ActionIsValid checks card against the current trick. Pass nil when the hand is unknown.
func (g *Game) ActionIsValid(card Card, hand *Hand) bool {
	return ActionIsValid(g.contract, g.played, g.ranAway, card, hand)
}

// LegalActions returns the cards seat may play now. It is empty when it is not seat's turn.
func (g *Game) LegalActions(seat int) []Card {
	if !validSeat(seat) || seat != g.next || g.IsOver() || g.contract.IsNone() {
		return nil
	}
	return LegalActions(g.contract, g.played, g.ranAway, &g.hands[seat])
}

// Points returns the card points won by each seat so far.
func (g *Game) Points() [PlayersPerGame]int {
	var points [PlayersPerGame]int
	for trick := 0; trick < len(g.played)/PlayersPerGame; trick++ {
		if winner, ok := TrickWinner(g.played, trick, g.contract); ok {
			points[winner] += TrickPoints(g.played, trick)
		}
	}
	return points
}

// TricksWon counts the completed tricks each seat won.
func (g *Game) TricksWon() [PlayersPerGame]int {
	var tricks [PlayersPerGame]int
	for trick := 0; trick < len(g.played)/PlayersPerGame; trick++ {
		if winner, ok := TrickWinner(g.played, trick, g.contract); ok {
			tricks[winner]++
		}
	}
	return tricks
}

// TrickWinner resolves trick of this game.
func (g *Game) TrickWinner(trick int) (int, bool) {
	return TrickWinner(g.played, trick, g.contract)
}

// CalledPartner returns the seat holding the called ace, or NoSeat outside Call games.
func (g *Game) CalledPartner() int {
	ace, ok := calledAce(g.contract)
	if !ok {
		return NoSeat
	}
	for seat := range g.hands {
		if containsCard(g.hands[seat].Cards, ace) || containsCard(g.hands[seat].Played, ace) {
			return seat
		}
	}
	return NoSeat
}

// NextPlayer is the seat expected to play the next card.
func (g *Game) NextPlayer() int { return g.next }

func (g *Game) Forehand() int { return g.forehand }

func (g *Game) Contract() Contract { return g.contract }

func (g *Game) Declarer() int { return g.declarer }

// RanAway reports whether the called partner has run from the called suit.
func (g *Game) RanAway() bool { return g.ranAway }

// Trick is the index of the trick currently being played.
func (g *Game) Trick() int { return len(g.played) / PlayersPerGame }

func (g *Game) PlayCount() int { return len(g.played) }

// Played returns a copy of the play log.
func (g *Game) Played() []PlayedCard {
	return append([]PlayedCard(nil), g.played...)
}

// CurrentTrick returns the cards already played into the open trick.
func (g *Game) CurrentTrick() []PlayedCard {
	return append([]PlayedCard(nil), TrickCards(g.played, g.Trick())...)
}

// Hand returns a copy of seat's hand.
func (g *Game) Hand(seat int) Hand {
	if !validSeat(seat) {
		return Hand{}
	}
	return g.hands[seat].clone()
}

// PlayerView is what one player is allowed to see of the game.
type PlayerView struct {
	Seat     int
	Hand     Hand
	Contract Contract
	Declarer int
	Trick    int
	Played   []PlayedCard
	RanAway  bool
}

// View builds the snapshot handed to the decision maker for seat.
func (g *Game) View(seat int) PlayerView {
	return PlayerView{
		Seat:     seat,
		Hand:     g.Hand(seat),
		Contract: g.contract,
		Declarer: g.declarer,
		Trick:    g.Trick(),
		Played:   g.Played(),
		RanAway:  g.ranAway,
	}
}
