package commands

import (
	"testing"

	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/world"
)

func grassParams(w, h int) mapping.GenerateParams {
	return mapping.GenerateParams{
		Width:    w,
		Height:   h,
		Palette:  []mapping.TerrainType{mapping.Grassland},
		Stacking: map[mapping.StackingClass]uint32{"ground": 1},
	}
}

func infantry() objects.Object {
	return objects.Object{
		Type:     objects.Type{Name: "Rifleman", Group: "Infantry", Class: "Unit"},
		Stacking: "ground",
		Movement: objects.MovementProfile{Points: 5, Class: "infantry"},
	}
}

// newGrassWorld returns a world with one generated grass map, applied through a
// local log, and that map's id.
func newGrassWorld(t *testing.T, w, h int) (*world.World, ids.MapID) {
	t.Helper()
	wd := world.New()
	gen := &GenerateMap{Params: grassParams(w, h), Seed: 1}
	if err := gen.Execute(wd); err != nil {
		t.Fatalf("generate map: %v", err)
	}
	return wd, gen.MapID
}

func mustTile(t *testing.T, w *world.World, m ids.MapID, p mapping.TilePos) *mapping.Tile {
	t.Helper()
	tile, ok := w.Tile(m, p)
	if !ok {
		t.Fatalf("no tile %v on %s", p, m)
	}
	return tile
}

func mustInvariants(t *testing.T, w *world.World) {
	t.Helper()
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}
