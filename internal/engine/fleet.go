package engine

import "fmt"

type ShipKind string

const (
	ShipCarrier    ShipKind = "carrier"
	ShipBattleship ShipKind = "battleship"
	ShipCruiser    ShipKind = "cruiser"
	ShipSubmarine  ShipKind = "submarine"
	ShipDestroyer  ShipKind = "destroyer"
)

type ShipSpec struct {
	Kind   ShipKind
	Length int
}

// FleetOrder is the canonical fleet, in the order ships are offered for placement.
var FleetOrder = []ShipSpec{
	{Kind: ShipCarrier, Length: 5},
	{Kind: ShipBattleship, Length: 4},
	{Kind: ShipCruiser, Length: 3},
	{Kind: ShipSubmarine, Length: 3},
	{Kind: ShipDestroyer, Length: 2},
}

// FleetCells is the number of cells a complete fleet occupies.
const FleetCells = 17

func ShipLength(kind ShipKind) (int, bool) {
	for _, spec := range FleetOrder {
		if spec.Kind == kind {
			return spec.Length, true
		}
	}
	return 0, false
}

// ShipPlacement is a ship laid horizontally: the anchor extends rightward by
// length-1 columns.
type ShipPlacement struct {
	Kind      ShipKind `json:"kind"`
	AnchorRow int      `json:"anchor_row"`
	AnchorCol int      `json:"anchor_col"`
	Cells     []Coord  `json:"cells"`
}

func NewShipPlacement(kind ShipKind, row, col int) (ShipPlacement, error) {
	length, ok := ShipLength(kind)
	if !ok {
		return ShipPlacement{}, fmt.Errorf("%w: %q", ErrUnknownShipKind, kind)
	}

	cells := make([]Coord, 0, length)
	for i := 0; i < length; i++ {
		if !inBounds(row, col+i, BattleshipSize) {
			return ShipPlacement{}, fmt.Errorf("%w: %s at (%d,%d)", ErrOutOfBounds, kind, row, col)
		}
		cells = append(cells, Coord{Row: row, Col: col + i})
	}

	return ShipPlacement{Kind: kind, AnchorRow: row, AnchorCol: col, Cells: cells}, nil
}

func (p ShipPlacement) Occupies(row, col int) bool {
	for _, c := range p.Cells {
		if c.Row == row && c.Col == col {
			return true
		}
	}
	return false
}

func (p ShipPlacement) clone() ShipPlacement {
	p.Cells = append([]Coord(nil), p.Cells...)
	return p
}

type Fleet []ShipPlacement

func (f Fleet) Has(kind ShipKind) bool {
	for _, p := range f {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

func (f Fleet) At(row, col int) (ShipPlacement, bool) {
	for _, p := range f {
		if p.Occupies(row, col) {
			return p, true
		}
	}
	return ShipPlacement{}, false
}

func (f Fleet) Complete() bool {
	return len(f) == len(FleetOrder)
}

// Remaining lists the kinds not yet placed, in FleetOrder.
func (f Fleet) Remaining() []ShipKind {
	out := []ShipKind{}
	for _, spec := range FleetOrder {
		if !f.Has(spec.Kind) {
			out = append(out, spec.Kind)
		}
	}
	return out
}

func (f Fleet) clone() Fleet {
	out := make(Fleet, 0, len(f))
	for _, p := range f {
		out = append(out, p.clone())
	}
	return out
}
