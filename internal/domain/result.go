package domain

// WinningThreshold is the number of card points the declaring side needs to win.
const WinningThreshold = 61

// schneiderLimit is the highest score that still counts as schneider for the losing side.
const schneiderLimit = 30

// Result summarizes a finished deal in card points. It does not price the deal.
type Result struct {
	Contract Contract
	Declarer int
	// Partner is the called partner in a Call game, NoSeat otherwise.
	Partner int
	Points  [PlayersPerGame]int
	Tricks  [PlayersPerGame]int

	DeclarerPoints int
	DefenderPoints int
	DeclarerWon    bool
	Schneider      bool
	Schwarz        bool

	// RamschLoser is the seat with the most points in a Ramsch, NoSeat otherwise.
	RamschLoser int
}

// Result evaluates the finished deal.
func (g *Game) Result() (Result, error) {
	if !g.IsOver() {
		return Result{}, ErrGameNotOver
	}
	r := Result{
		Contract:    g.contract,
		Declarer:    g.declarer,
		Partner:     g.CalledPartner(),
		Points:      g.Points(),
		Tricks:      g.TricksWon(),
		RamschLoser: NoSeat,
	}

	if g.contract.Kind == ContractRamsch {
		r.Declarer = NoSeat
		for seat, p := range r.Points {
			if r.RamschLoser == NoSeat || p > r.Points[r.RamschLoser] {
				r.RamschLoser = seat
			}
		}
		return r, nil
	}

	declarerTricks, defenderTricks := 0, 0
	for seat := range r.Points {
		if seat == r.Declarer || seat == r.Partner {
			r.DeclarerPoints += r.Points[seat]
			declarerTricks += r.Tricks[seat]
		} else {
			r.DefenderPoints += r.Points[seat]
			defenderTricks += r.Tricks[seat]
		}
	}
	r.DeclarerWon = r.DeclarerPoints >= WinningThreshold
	if r.DeclarerWon {
		r.Schneider = r.DefenderPoints <= schneiderLimit
		r.Schwarz = defenderTricks == 0
	} else {
		r.Schneider = r.DeclarerPoints <= schneiderLimit
		r.Schwarz = declarerTricks == 0
	}
	return r, nil
}

// DeclaringSide reports whether seat plays on the declarer's side.
func (r Result) DeclaringSide(seat int) bool {
	return seat != NoSeat && (seat == r.Declarer || seat == r.Partner)
}
