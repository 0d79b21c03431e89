package engine

type Mark struct {
	Row int  `json:"row"`
	Col int  `json:"col"`
	By  Seat `json:"by"`
}

type TicTacToeState struct {
	Board [TicTacToeSize][TicTacToeSize]Seat
	Moves []Mark
	Turn  Seat
}

var ticTacToeLines = [8][3]Coord{
	// rows
	{{0, 0}, {0, 1}, {0, 2}}, {{1, 0}, {1, 1}, {1, 2}}, {{2, 0}, {2, 1}, {2, 2}},
	// cols
	{{0, 0}, {1, 0}, {2, 0}}, {{0, 1}, {1, 1}, {2, 1}}, {{0, 2}, {1, 2}, {2, 2}},
	// diags
	{{0, 0}, {1, 1}, {2, 2}}, {{0, 2}, {1, 1}, {2, 0}},
}

type ticTacToeRules struct{}

func (ticTacToeRules) newState() State {
	return State{Mode: ModeTicTacToe, TicTacToe: &TicTacToeState{Moves: []Mark{}, Turn: SeatA}}
}

func (ticTacToeRules) start(s *State) {
	s.TicTacToe.Turn = SeatA
}

func (ticTacToeRules) turnGated(Move) bool { return true }

func (ticTacToeRules) turn(s State) Seat { return s.TicTacToe.Turn }

func (ticTacToeRules) validate(s State, _ Seat, m Move) error {
	if m.Kind != MoveMark && m.Kind != "" {
		return ErrInvalidMove
	}
	if !inBounds(m.Row, m.Col, TicTacToeSize) {
		return ErrOutOfBounds
	}
	if s.TicTacToe.Board[m.Row][m.Col] != "" {
		return ErrBoardPositionNotEmpty
	}
	return nil
}

func (ticTacToeRules) apply(s *State, seat Seat, m Move) []Event {
	t := s.TicTacToe
	t.Board[m.Row][m.Col] = seat
	t.Moves = append(t.Moves, Mark{Row: m.Row, Col: m.Col, By: seat})
	t.Turn = seat.Opponent()

	return []Event{
		{Type: EvtMarkPlaced, Seat: seat, Row: m.Row, Col: m.Col},
		{Type: EvtTurnAdvanced, Seat: t.Turn},
	}
}

func (ticTacToeRules) outcome(s State) (bool, Seat) {
	b := s.TicTacToe.Board
	for _, ln := range ticTacToeLines {
		first := b[ln[0].Row][ln[0].Col]
		if first != "" && b[ln[1].Row][ln[1].Col] == first && b[ln[2].Row][ln[2].Col] == first {
			return true, first
		}
	}
	if len(s.TicTacToe.Moves) == TicTacToeSize*TicTacToeSize {
		return true, ""
	}
	return false, ""
}
