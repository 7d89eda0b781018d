package movement

import (
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/world"
)

// Mover bundles what a cost policy or predicate needs about the moving object.
type Mover struct {
	Object *objects.Object
	Map    *mapping.Map
	World  *world.World
}

// CostPolicy prices a step into a neighboring tile. It returns false for
// impassable tiles.
type CostPolicy func(m Mover, from, to *mapping.Tile) (uint32, bool)

// Predicate decides whether a tile may be a destination.
type Predicate func(m Mover, t *mapping.Tile) bool

// DefaultCost rejects terrain the mover's profile does not admit and otherwise
// charges the tile's cost for the mover's movement class.
func DefaultCost(m Mover, _ *mapping.Tile, to *mapping.Tile) (uint32, bool) {
	if !m.Object.Movement.Admits(to.Terrain) {
		return 0, false
	}
	return to.Costs.Cost(m.Object.Movement.Class), true
}

// StackingSpace requires room in the tile ledger for the mover's stacking class.
func StackingSpace(m Mover, t *mapping.Tile) bool {
	return t.HasSpace(m.Object.Stacking)
}

// TerrainAdmits requires the mover's profile to admit the tile's terrain. Use it
// when terrain should block stopping but not passing.
func TerrainAdmits(m Mover, t *mapping.Tile) bool {
	return m.Object.Movement.Admits(t.Terrain)
}

// ObjectTypeRules checks every occupant of the tile against the mover's type rules.
func ObjectTypeRules(m Mover, t *mapping.Tile) bool {
	if m.Object.TypeRules.Empty() {
		return true
	}
	for _, id := range t.Occupants {
		o, ok := m.World.Object(id)
		if !ok {
			continue
		}
		if !m.Object.TypeRules.Allows(o.Type) {
			return false
		}
	}
	return true
}

// RejectTerrain returns a predicate refusing tiles of the named terrain types.
func RejectTerrain(names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(_ Mover, t *mapping.Tile) bool {
		_, ok := set[t.Terrain.Name]
		return !ok
	}
}

// RejectTerrainClass returns a predicate refusing tiles of the given class.
func RejectTerrainClass(class mapping.TerrainClass) Predicate {
	return func(_ Mover, t *mapping.Tile) bool { return t.Terrain.Class != class }
}

// Custom adapts a plain tile check into a predicate.
func Custom(fn func(t *mapping.Tile) bool) Predicate {
	return func(_ Mover, t *mapping.Tile) bool { return fn(t) }
}
