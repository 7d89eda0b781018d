package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "gridtactics.dev/internal/persistence/log"
	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/game"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/movement"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
)

// playGame runs a short networked game with a journal and returns the run dir.
func playGame(t *testing.T) (string, *game.Game) {
	t.Helper()
	dir := t.TempDir()
	j := persistlog.NewJournal(dir, nil)
	unit := &commands.SpawnObject{
		Object: objects.Object{
			Owner:    &players.Marker{Player: 1},
			Type:     objects.Type{Name: "Rifleman", Group: "Infantry", Class: "Unit"},
			Stacking: "ground",
			Movement: objects.MovementProfile{Points: 4, Class: "infantry"},
		},
		Map: 1,
		Pos: mapping.TilePos{X: 0, Y: 0},
	}
	g, err := game.NewBuilder("replay").
		WithRunner(game.NewTurnBased(1)).
		WithMode(commands.ModeNetworked).
		WithHooks(j).
		WithPlayers(players.Player{ID: 1, NeedsState: true}).
		WithCommands(&commands.GenerateMap{
			Params: mapping.GenerateParams{
				Width:    6,
				Height:   6,
				Palette:  []mapping.TerrainType{mapping.Grassland},
				Stacking: map[mapping.StackingClass]uint32{"ground": 1},
			},
			Seed: 3,
		}, unit).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tick := func() {
		t.Helper()
		if _, err := g.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	move := func(x, y int) {
		t.Helper()
		if _, err := g.RequestMove(movement.MoveRequest{Object: unit.SpawnedID, Map: 1, To: mapping.TilePos{X: x, Y: y}, Player: 1}); err != nil {
			t.Fatalf("move to (%d,%d): %v", x, y, err)
		}
		tick()
	}
	move(2, 0)
	move(2, 2)
	g.Undo(1)
	tick()
	g.Redo(1)
	tick()
	move(3, 3)
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}
	return dir, g
}

func TestVerifyMatchesSnapshot(t *testing.T) {
	dir, g := playGame(t)
	snap, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	path := filepath.Join(dir, "snapshots", "99.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if got := latestSnapshot(dir); got != path {
		t.Fatalf("latestSnapshot = %q", got)
	}

	res, err := verify(dir, path, commands.ModeNetworked)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Digest != g.World().EntityDigest() {
		t.Fatalf("digest %s != live %s", res.Digest, g.World().EntityDigest())
	}
	if res.History != g.Log().HistoryLen() {
		t.Fatalf("history %d != live %d", res.History, g.Log().HistoryLen())
	}
}

func TestVerifyDetectsDivergence(t *testing.T) {
	dir, g := playGame(t)
	o, _ := g.World().Object(g.World().ObjectIDs()[0])
	step := &commands.StepObject{Object: o.ID, Direction: commands.East}
	if err := step.Execute(g.World()); err != nil {
		t.Fatalf("step outside the log: %v", err)
	}
	snap, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	path := filepath.Join(dir, "snapshots", "7.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, err := verify(dir, path, commands.ModeNetworked); err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}

func TestVerifyWithoutJournal(t *testing.T) {
	if _, err := verify(t.TempDir(), "", commands.ModeLocal); err == nil {
		t.Fatalf("expected error for empty run dir")
	}
}
