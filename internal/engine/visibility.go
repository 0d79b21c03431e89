package engine

// Viewer is the recipient class of a projection: one of the seats or an observer.
type Viewer string

const ViewerObserver Viewer = "observer"

func SeatViewer(s Seat) Viewer { return Viewer(s) }

func (v Viewer) Seat() (Seat, bool) {
	switch Seat(v) {
	case SeatA, SeatB:
		return Seat(v), true
	}
	return "", false
}

type Cell string

const (
	CellUnknown Cell = "?"
	CellEmpty   Cell = "."
	CellHit     Cell = "H"
	CellMiss    Cell = "M"
)

var shipCells = map[ShipKind]Cell{
	ShipCarrier:    "C",
	ShipBattleship: "B",
	ShipCruiser:    "R",
	ShipSubmarine:  "S",
	ShipDestroyer:  "D",
}

func ShipCell(kind ShipKind) Cell { return shipCells[kind] }

type Grid [BattleshipSize][BattleshipSize]Cell

func filledGrid(c Cell) Grid {
	var g Grid
	for r := range g {
		for col := range g[r] {
			g[r][col] = c
		}
	}
	return g
}

type RedactedView struct {
	Mode       Mode            `json:"mode"`
	Viewer     Viewer          `json:"viewer"`
	TicTacToe  *TicTacToeView  `json:"tictactoe,omitempty"`
	Battleship *BattleshipView `json:"battleship,omitempty"`
}

type TicTacToeView struct {
	Board [TicTacToeSize][TicTacToeSize]Seat `json:"board"`
	Moves []Mark                             `json:"moves"`
	Turn  Seat                               `json:"turn"`
}

// BattleshipView never contains an opponent ship cell that has not been hit.
// Waters[s] is seat s's half of the sea as the viewer may see it.
type BattleshipView struct {
	Turn              Seat                     `json:"turn"`
	PlacementComplete map[Seat]bool            `json:"placement_complete"`
	Fleet             []ShipPlacement          `json:"fleet,omitempty"`
	Remaining         []ShipKind               `json:"remaining,omitempty"`
	Shots             map[Seat][]Guess         `json:"shots"`
	Waters            map[Seat]Grid            `json:"waters"`
	Sunk              map[Seat][]ShipPlacement `json:"sunk"`
}

// ProjectView is the only way state leaves the engine. It is pure: it never
// mutates s and shares no memory with it.
func ProjectView(s State, viewer Viewer) RedactedView {
	view := RedactedView{Mode: s.Mode, Viewer: viewer}

	switch {
	case s.TicTacToe != nil:
		view.TicTacToe = projectTicTacToe(s.TicTacToe)
	case s.Battleship != nil:
		view.Battleship = projectBattleship(s.Battleship, viewer)
	}
	return view
}

func projectTicTacToe(t *TicTacToeState) *TicTacToeView {
	return &TicTacToeView{
		Board: t.Board,
		Moves: append([]Mark{}, t.Moves...),
		Turn:  t.Turn,
	}
}

func projectBattleship(b *BattleshipState, viewer Viewer) *BattleshipView {
	v := &BattleshipView{
		Turn:              b.Turn,
		PlacementComplete: map[Seat]bool{},
		Shots:             map[Seat][]Guess{},
		Waters:            map[Seat]Grid{},
		Sunk:              map[Seat][]ShipPlacement{},
	}

	own, seated := viewer.Seat()
	if seated {
		v.Fleet = b.Fleets[own].clone()
		v.Remaining = b.Fleets[own].Remaining()
	}

	for _, seat := range Seats {
		v.PlacementComplete[seat] = b.PlacementComplete[seat]
		v.Shots[seat] = append([]Guess{}, b.Shots[seat]...)
		v.Sunk[seat] = b.sunk(seat)

		if seated && seat == own {
			v.Waters[seat] = ownWaters(b, seat)
		} else {
			v.Waters[seat] = targetWaters(b, seat)
		}
	}
	return v
}

// ownWaters is seat's sea as its owner sees it: ships plus incoming fire.
func ownWaters(b *BattleshipState, seat Seat) Grid {
	g := filledGrid(CellEmpty)
	for _, p := range b.Fleets[seat] {
		for _, c := range p.Cells {
			g[c.Row][c.Col] = ShipCell(p.Kind)
		}
	}
	for _, shot := range b.Shots[seat.Opponent()] {
		if shot.Outcome == OutcomeHit {
			g[shot.Row][shot.Col] = CellHit
		} else {
			g[shot.Row][shot.Col] = CellMiss
		}
	}
	return g
}

// targetWaters is seat's sea built only from the shots fired into it.
func targetWaters(b *BattleshipState, seat Seat) Grid {
	g := filledGrid(CellUnknown)
	for _, shot := range b.Shots[seat.Opponent()] {
		if shot.Outcome == OutcomeHit {
			g[shot.Row][shot.Col] = CellHit
		} else {
			g[shot.Row][shot.Col] = CellMiss
		}
	}
	return g
}
