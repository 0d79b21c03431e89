package engine

const (
	TicTacToeSize  = 3
	BattleshipSize = 10
)

type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func inBounds(row, col, size int) bool {
	return row >= 0 && row < size && col >= 0 && col < size
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func seatSet() map[Seat]bool {
	return map[Seat]bool{SeatA: false, SeatB: false}
}
