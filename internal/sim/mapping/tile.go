package mapping

import (
	"fmt"

	"gridtactics.dev/internal/sim/ids"
)

type TilePos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p TilePos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func (p TilePos) Add(dx, dy int) TilePos { return TilePos{X: p.X + dx, Y: p.Y + dy} }

// Tile is one grid cell. Occupants are object ids in insertion order; the ledger
// counts them per stacking class.
type Tile struct {
	Pos       TilePos        `json:"pos"`
	Terrain   TerrainType    `json:"terrain"`
	Costs     CostTable      `json:"costs,omitempty"`
	Stacking  StackingLedger `json:"stacking"`
	Occupants []ids.ObjectID `json:"occupants,omitempty"`
}

func (t *Tile) HasSpace(class StackingClass) bool { return t.Stacking.HasSpace(class) }

func (t *Tile) Contains(id ids.ObjectID) bool {
	for _, o := range t.Occupants {
		if o == id {
			return true
		}
	}
	return false
}

// Admit adds the occupant and counts it against class. It reports false and
// changes nothing when the occupant is already present or the class is full.
func (t *Tile) Admit(id ids.ObjectID, class StackingClass) bool {
	if t.Contains(id) || !t.Stacking.increment(class) {
		return false
	}
	t.Occupants = append(t.Occupants, id)
	return true
}

// Evict removes the occupant and releases its ledger slot. It reports false and
// changes nothing when the occupant is not present.
func (t *Tile) Evict(id ids.ObjectID, class StackingClass) bool {
	idx := -1
	for i, o := range t.Occupants {
		if o == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if !t.Stacking.decrement(class) {
		return false
	}
	t.Occupants = append(t.Occupants[:idx], t.Occupants[idx+1:]...)
	return true
}

func (t *Tile) Clone() *Tile {
	out := &Tile{
		Pos:      t.Pos,
		Terrain:  t.Terrain,
		Costs:    t.Costs.Clone(),
		Stacking: t.Stacking.Clone(),
	}
	if len(t.Occupants) > 0 {
		out.Occupants = append([]ids.ObjectID(nil), t.Occupants...)
	}
	return out
}
