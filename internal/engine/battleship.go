package engine

import "fmt"

type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

type Guess struct {
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	By      Seat    `json:"by"`
	Outcome Outcome `json:"outcome"`
}

type BattleshipState struct {
	Fleets            map[Seat]Fleet
	Shots             map[Seat][]Guess
	PlacementComplete map[Seat]bool
	Turn              Seat
}

func (s *BattleshipState) guessed(by Seat, row, col int) bool {
	for _, g := range s.Shots[by] {
		if g.Row == row && g.Col == col {
			return true
		}
	}
	return false
}

// hitCells counts distinct cells of seat's fleet hit by the opponent.
func (s *BattleshipState) hitCells(seat Seat) int {
	hits := map[Coord]bool{}
	fleet := s.Fleets[seat]
	for _, g := range s.Shots[seat.Opponent()] {
		if g.Outcome != OutcomeHit {
			continue
		}
		if _, ok := fleet.At(g.Row, g.Col); ok {
			hits[Coord{Row: g.Row, Col: g.Col}] = true
		}
	}
	return len(hits)
}

// sunk returns seat's ships whose every cell has been hit.
func (s *BattleshipState) sunk(seat Seat) []ShipPlacement {
	hit := map[Coord]bool{}
	for _, g := range s.Shots[seat.Opponent()] {
		if g.Outcome == OutcomeHit {
			hit[Coord{Row: g.Row, Col: g.Col}] = true
		}
	}

	out := []ShipPlacement{}
	for _, p := range s.Fleets[seat] {
		down := true
		for _, c := range p.Cells {
			if !hit[c] {
				down = false
				break
			}
		}
		if down {
			out = append(out, p.clone())
		}
	}
	return out
}

type battleshipRules struct{}

func (battleshipRules) newState() State {
	return State{
		Mode: ModeBattleship,
		Battleship: &BattleshipState{
			Fleets:            map[Seat]Fleet{SeatA: {}, SeatB: {}},
			Shots:             map[Seat][]Guess{SeatA: {}, SeatB: {}},
			PlacementComplete: seatSet(),
			Turn:              SeatA,
		},
	}
}

func (r battleshipRules) start(s *State) {
	*s = r.newState()
}

func (battleshipRules) turnGated(m Move) bool { return m.Kind == MoveGuess }

func (battleshipRules) turn(s State) Seat { return s.Battleship.Turn }

func (battleshipRules) validate(s State, seat Seat, m Move) error {
	b := s.Battleship

	switch m.Kind {
	case MovePlace:
		if _, ok := ShipLength(m.Ship); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownShipKind, m.Ship)
		}
		fleet := b.Fleets[seat]
		if fleet.Has(m.Ship) {
			return fmt.Errorf("%w: %s", ErrShipAlreadyPlaced, m.Ship)
		}
		placement, err := NewShipPlacement(m.Ship, m.Row, m.Col)
		if err != nil {
			return err
		}
		for _, c := range placement.Cells {
			if other, ok := fleet.At(c.Row, c.Col); ok {
				return fmt.Errorf("%w: (%d,%d) holds %s", ErrBoardPositionNotEmpty, c.Row, c.Col, other.Kind)
			}
		}
		return nil

	case MoveGuess:
		if !b.PlacementComplete[seat] || !b.PlacementComplete[seat.Opponent()] {
			return ErrPlacementIncomplete
		}
		if !inBounds(m.Row, m.Col, BattleshipSize) {
			return ErrOutOfBounds
		}
		if b.guessed(seat, m.Row, m.Col) {
			return ErrBoardPositionNotEmpty
		}
		return nil

	default:
		return ErrInvalidMove
	}
}

func (battleshipRules) apply(s *State, seat Seat, m Move) []Event {
	b := s.Battleship

	if m.Kind == MovePlace {
		// validate already vetted the placement
		placement, _ := NewShipPlacement(m.Ship, m.Row, m.Col)
		b.Fleets[seat] = append(b.Fleets[seat], placement)
		events := []Event{{Type: EvtShipPlaced, Seat: seat, Ship: m.Ship, Row: m.Row, Col: m.Col}}

		if b.Fleets[seat].Complete() {
			b.PlacementComplete[seat] = true
			events = append(events, Event{Type: EvtPlacementCompleted, Seat: seat})
		}
		return events
	}

	outcome := OutcomeMiss
	if _, ok := b.Fleets[seat.Opponent()].At(m.Row, m.Col); ok {
		outcome = OutcomeHit
	}
	b.Shots[seat] = append(b.Shots[seat], Guess{Row: m.Row, Col: m.Col, By: seat, Outcome: outcome})
	events := []Event{{Type: EvtShotFired, Seat: seat, Row: m.Row, Col: m.Col, Outcome: outcome}}

	// A hit keeps the turn.
	if outcome == OutcomeMiss {
		b.Turn = seat.Opponent()
		events = append(events, Event{Type: EvtTurnAdvanced, Seat: b.Turn})
	}
	return events
}

func (battleshipRules) outcome(s State) (bool, Seat) {
	b := s.Battleship
	for _, seat := range Seats {
		if b.PlacementComplete[seat] && b.hitCells(seat) == FleetCells {
			return true, seat.Opponent()
		}
	}
	return false, ""
}
