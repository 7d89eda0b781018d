package movement

import (
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/pathfind"
	"gridtactics.dev/internal/sim/world"
)

// Calculator computes reachable tiles for an object on its current map.
type Calculator struct {
	Diagonals bool
	// Cost defaults to DefaultCost.
	Cost CostPolicy
	// Predicates run in order; the first rejection marks the tile invalid.
	Predicates []Predicate
	// OnTile runs once per settled tile.
	OnTile func(m Mover, t *mapping.Tile, node pathfind.Node[mapping.TilePos])
}

// NewCalculator returns a calculator with the stacking and object type predicates.
func NewCalculator(diagonals bool) *Calculator {
	return &Calculator{
		Diagonals:  diagonals,
		Cost:       DefaultCost,
		Predicates: []Predicate{StackingSpace, ObjectTypeRules},
	}
}

type Reach = pathfind.Result[mapping.TilePos]

// Reachable runs the pathfinder from the object's current tile, bounded by its
// movement points.
func (c *Calculator) Reachable(w *world.World, id ids.ObjectID) (Reach, error) {
	o, ok := w.Object(id)
	if !ok {
		return Reach{}, commands.MissingEntity("object %s", id)
	}
	if !o.Position.Placed {
		return Reach{}, commands.Constraint("object %s is not on a map", id)
	}
	m, ok := w.Map(o.Position.Map)
	if !ok {
		return Reach{}, commands.MissingEntity("map %s", o.Position.Map)
	}
	mv := Mover{Object: o, Map: m, World: w}

	cost := c.Cost
	if cost == nil {
		cost = DefaultCost
	}
	solver := pathfind.Solver[mapping.TilePos]{
		Neighbors: func(p mapping.TilePos) []mapping.TilePos { return m.Neighbors(p, c.Diagonals) },
		Cost: func(from, to mapping.TilePos) (uint32, bool) {
			ft, _ := m.Tile(from)
			tt, ok := m.Tile(to)
			if !ok {
				return 0, false
			}
			return cost(mv, ft, tt)
		},
		Budget: o.Movement.Points,
	}
	for _, p := range c.Predicates {
		p := p
		solver.Predicates = append(solver.Predicates, func(pos mapping.TilePos) bool {
			t, ok := m.Tile(pos)
			return ok && p(mv, t)
		})
	}
	if c.OnTile != nil {
		solver.OnSettle = func(pos mapping.TilePos, node pathfind.Node[mapping.TilePos]) {
			if t, ok := m.Tile(pos); ok {
				c.OnTile(mv, t, node)
			}
		}
	}
	return solver.Solve(o.Position.Tile), nil
}
