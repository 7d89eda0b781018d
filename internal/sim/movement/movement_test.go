package movement

import (
	"errors"
	"reflect"
	"testing"

	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/pathfind"
	"gridtactics.dev/internal/sim/world"
)

var testStacking = map[mapping.StackingClass]uint32{"ground": 1, "air": 1}

func newWorld(t *testing.T, width, height int) (*world.World, *mapping.Map) {
	t.Helper()
	w := world.New()
	m, err := mapping.New(w.IDs.NextMapID(), width, height, mapping.TopologySquare, mapping.Grassland, nil, testStacking)
	if err != nil {
		t.Fatalf("new map: %v", err)
	}
	if err := w.InsertMap(m); err != nil {
		t.Fatalf("insert map: %v", err)
	}
	return w, m
}

func unit(points uint32) objects.Object {
	return objects.Object{
		Type:     objects.Type{Name: "Rifleman", Group: "Infantry", Class: "Unit"},
		Stacking: "ground",
		Movement: objects.MovementProfile{Points: points, Class: "infantry"},
	}
}

func spawn(t *testing.T, w *world.World, m *mapping.Map, o objects.Object, p mapping.TilePos) ids.ObjectID {
	t.Helper()
	cmd := &commands.SpawnObject{Object: o, Map: m.ID, Pos: p}
	if err := cmd.Execute(w); err != nil {
		t.Fatalf("spawn at %v: %v", p, err)
	}
	return cmd.SpawnedID
}

func TestReachableAcrossForestRow(t *testing.T) {
	w, m := newWorld(t, 5, 5)
	for x := 1; x <= 3; x++ {
		m.SetTerrain(mapping.TilePos{X: x, Y: 2}, mapping.Forest, mapping.CostTable{"infantry": 2})
	}
	id := spawn(t, w, m, unit(8), mapping.TilePos{X: 0, Y: 2})

	reach, err := NewCalculator(false).Reachable(w, id)
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	if got := len(reach.Reachable); got != 24 {
		t.Fatalf("reachable: got %d want 24", got)
	}
	for _, tc := range []struct {
		pos  mapping.TilePos
		cost uint32
	}{
		{mapping.TilePos{X: 1, Y: 2}, 2},
		{mapping.TilePos{X: 3, Y: 2}, 6},
		{mapping.TilePos{X: 4, Y: 2}, 6},
		{mapping.TilePos{X: 4, Y: 4}, 6},
	} {
		n, ok := reach.Nodes[tc.pos]
		if !ok || !n.Valid {
			t.Fatalf("%v not reachable", tc.pos)
		}
		if n.Cost != tc.cost {
			t.Fatalf("%v cost: got %d want %d", tc.pos, n.Cost, tc.cost)
		}
	}
	path, ok := reach.Path(mapping.TilePos{X: 4, Y: 2})
	if !ok || path[0] != (mapping.TilePos{X: 0, Y: 2}) || path[len(path)-1] != (mapping.TilePos{X: 4, Y: 2}) {
		t.Fatalf("path: %v", path)
	}
	for _, p := range path[1 : len(path)-1] {
		tile, _ := m.Tile(p)
		if tile.Terrain == mapping.Forest {
			t.Fatalf("cheapest path to (4,2) should detour around the forest: %v", path)
		}
	}
}

func TestRequestMoveRejectsUnreachable(t *testing.T) {
	w, m := newWorld(t, 10, 10)
	id := spawn(t, w, m, unit(3), mapping.TilePos{})
	log := commands.NewLog(commands.Options{})
	orch := NewOrchestrator(nil, log)

	_, err := orch.RequestMove(w, MoveRequest{Object: id, Map: m.ID, To: mapping.TilePos{X: 4}})
	if !errors.Is(err, commands.ErrInvalidMove) {
		t.Fatalf("expected invalid move, got %v", err)
	}
	if n := len(log.Pending()); n != 0 {
		t.Fatalf("log changed: %d pending", n)
	}

	_, err = orch.RequestMove(w, MoveRequest{Object: id + 100, Map: m.ID, To: mapping.TilePos{X: 1}})
	if !errors.Is(err, commands.ErrMissingEntity) {
		t.Fatalf("expected missing entity, got %v", err)
	}
}

func TestRequestMoveEnqueuesPathAndCost(t *testing.T) {
	w, m := newWorld(t, 10, 10)
	id := spawn(t, w, m, unit(3), mapping.TilePos{})
	log := commands.NewLog(commands.Options{Strict: true})
	orch := NewOrchestrator(nil, log)

	dest := mapping.TilePos{X: 2, Y: 1}
	rec, err := orch.RequestMove(w, MoveRequest{Object: id, Map: m.ID, To: dest, Player: 2})
	if err != nil {
		t.Fatalf("request move: %v", err)
	}
	mv, ok := rec.Command.(*commands.MoveObject)
	if !ok {
		t.Fatalf("unexpected command %T", rec.Command)
	}
	if mv.Cost != 3 || len(mv.Path) != 4 {
		t.Fatalf("move: cost=%d path=%v", mv.Cost, mv.Path)
	}
	if rec.Origin != commands.OriginPlayer || rec.Player != 2 {
		t.Fatalf("origin: %v player %d", rec.Origin, rec.Player)
	}
	if err := log.ExecuteBuffer(w); err != nil {
		t.Fatalf("execute: %v", err)
	}
	o, _ := w.Object(id)
	if o.Position.Tile != dest {
		t.Fatalf("position: got %v want %v", o.Position.Tile, dest)
	}
}

func TestPredicateOrderIsCommutative(t *testing.T) {
	w, m := newWorld(t, 6, 6)
	m.SetTerrain(mapping.TilePos{X: 1, Y: 1}, mapping.CoastWater, nil)
	m.SetTerrain(mapping.TilePos{X: 2, Y: 0}, mapping.Ocean, nil)
	m.SetTerrain(mapping.TilePos{X: 0, Y: 2}, mapping.Forest, nil)
	m.SetTerrain(mapping.TilePos{X: 3, Y: 3}, mapping.Forest, nil)
	id := spawn(t, w, m, unit(6), mapping.TilePos{})

	noWater := RejectTerrainClass(mapping.ClassWater)
	noForest := RejectTerrain(mapping.Forest.Name)
	a, err := (&Calculator{Predicates: []Predicate{noWater, noForest}}).Reachable(w, id)
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	b, err := (&Calculator{Predicates: []Predicate{noForest, noWater}}).Reachable(w, id)
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	if !reflect.DeepEqual(a.Reachable, b.Reachable) {
		t.Fatalf("reachable differs:\n%v\n%v", a.Reachable, b.Reachable)
	}
	for _, p := range []mapping.TilePos{{X: 1, Y: 1}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 3, Y: 3}} {
		if a.Contains(p) {
			t.Fatalf("%v should be rejected", p)
		}
	}
}

func TestCornersAtBudgetBoundaries(t *testing.T) {
	corners := []mapping.TilePos{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 0, Y: 9}, {X: 9, Y: 9}}
	for _, tc := range []struct {
		points uint32
		want   int
	}{
		{0, 0},
		{1, 2},
		{5, 20},
	} {
		for _, c := range corners {
			w, m := newWorld(t, 10, 10)
			id := spawn(t, w, m, unit(tc.points), c)
			reach, err := NewCalculator(false).Reachable(w, id)
			if err != nil {
				t.Fatalf("reachable: %v", err)
			}
			if got := len(reach.Reachable); got != tc.want {
				t.Fatalf("corner %v points %d: got %d want %d", c, tc.points, got, tc.want)
			}
		}
	}
}

func TestOccupiedTilesPassableButNotDestinations(t *testing.T) {
	w, m := newWorld(t, 5, 1)
	id := spawn(t, w, m, unit(3), mapping.TilePos{})
	spawn(t, w, m, unit(1), mapping.TilePos{X: 1})

	reach, err := NewCalculator(false).Reachable(w, id)
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	if reach.Contains(mapping.TilePos{X: 1}) {
		t.Fatalf("full tile reported reachable")
	}
	n, ok := reach.Nodes[mapping.TilePos{X: 2}]
	if !ok || !n.Valid || n.Cost != 2 || n.Prior != (mapping.TilePos{X: 1}) {
		t.Fatalf("tile behind occupant: %+v ok=%v", n, ok)
	}
}

func TestTypeRulesRejectSharedTile(t *testing.T) {
	w, m := newWorld(t, 3, 1)
	mover := unit(2)
	mover.TypeRules = objects.TypeRules{Groups: map[string]bool{"Armor": false}}
	id := spawn(t, w, m, mover, mapping.TilePos{})

	heli := objects.Object{
		Type:     objects.Type{Name: "Gunship", Group: "Armor", Class: "Unit"},
		Stacking: "air",
	}
	spawn(t, w, m, heli, mapping.TilePos{X: 1})

	reach, err := NewCalculator(false).Reachable(w, id)
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	if reach.Contains(mapping.TilePos{X: 1}) {
		t.Fatalf("tile with disallowed occupant reported reachable")
	}
	if !reach.Contains(mapping.TilePos{X: 2}) {
		t.Fatalf("tile past the occupant should be reachable")
	}
}

func TestTerrainClassBlocksEntry(t *testing.T) {
	w, m := newWorld(t, 3, 1)
	m.SetTerrain(mapping.TilePos{X: 1}, mapping.Ocean, nil)
	mover := unit(4)
	mover.Movement.TerrainClasses = []mapping.TerrainClass{mapping.ClassGround}
	id := spawn(t, w, m, mover, mapping.TilePos{})

	var settled []mapping.TilePos
	calc := NewCalculator(false)
	calc.OnTile = func(_ Mover, tile *mapping.Tile, _ pathfind.Node[mapping.TilePos]) {
		settled = append(settled, tile.Pos)
	}
	reach, err := calc.Reachable(w, id)
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	if _, ok := reach.Nodes[mapping.TilePos{X: 1}]; ok {
		t.Fatalf("impassable water tile recorded")
	}
	if len(reach.Reachable) != 0 {
		t.Fatalf("reachable: %v", reach.Reachable)
	}
	if len(settled) != 1 || settled[0] != (mapping.TilePos{}) {
		t.Fatalf("settled: %v", settled)
	}
}
