package log

import (
	"path/filepath"
	"testing"

	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/world"
)

func TestJournalRotatesSegmentsBySeq(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(dir, nil, 2)
	despawn := commands.Record{Command: &commands.DespawnObject{Object: 1}}
	for i := 0; i < 5; i++ {
		j.OnCommand(commands.Event{Type: commands.EventFailed, Tick: uint64(i), Record: despawn})
	}
	if err := j.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segs, err := filepath.Glob(filepath.Join(dir, "journal", "*.jsonl.zst"))
	if err != nil || len(segs) != 3 {
		t.Fatalf("segments=%v err=%v", segs, err)
	}
	if got := filepath.Base(segs[2]); got != "journal-00000000000000000005.jsonl.zst" {
		t.Fatalf("last segment = %s", got)
	}
	entries, err := ReadJournal(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries=%d want=5", len(entries))
	}
	for i, e := range entries {
		if e.Seq != uint64(i+1) || e.Tick != uint64(i) {
			t.Fatalf("entry %d: seq=%d tick=%d", i, e.Seq, e.Tick)
		}
	}
}

func TestJournalReplayReproducesWorld(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, nil)

	live := world.New()
	l := commands.NewLog(commands.Options{Strict: true, Hooks: []commands.Hook{j}})
	gen := &commands.GenerateMap{
		Params: mapping.GenerateParams{
			Width:    5,
			Height:   5,
			Palette:  mapping.DefaultPalette(),
			Stacking: map[mapping.StackingClass]uint32{"ground": 1},
		},
		Seed: 9,
	}
	l.Add(gen)
	if err := l.ExecuteBuffer(live); err != nil {
		t.Fatalf("generate: %v", err)
	}
	unit := objects.Object{Type: objects.Type{Name: "Scout"}, Stacking: "ground"}
	spawn := &commands.SpawnObject{Object: unit, Map: gen.MapID, Pos: mapping.TilePos{X: 2, Y: 2}}
	l.Add(spawn)
	l.Add(&commands.SpawnObject{Object: unit, Map: gen.MapID, Pos: mapping.TilePos{X: 2, Y: 2}}) // tile full
	if err := l.ExecuteBuffer(live); err == nil {
		t.Fatalf("expected the second spawn to fail")
	}
	live.AdvanceTick()
	l.Add(&commands.StepObject{Object: spawn.SpawnedID, Direction: commands.East})
	if err := l.ExecuteBuffer(live); err != nil {
		t.Fatalf("step: %v", err)
	}
	l.Add(&commands.StepObject{Object: spawn.SpawnedID, Direction: commands.North})
	if err := l.ExecuteBuffer(live); err != nil {
		t.Fatalf("step: %v", err)
	}
	l.RequestRollback(2)
	if err := l.DrainRollbacks(live); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	l.RequestRollforward(1)
	if err := l.DrainRollforwards(live); err != nil {
		t.Fatalf("rollforward: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := ReadJournal(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// generate, spawn, failed spawn, 2 steps, 2 rollbacks, 1 rollforward
	if len(entries) != 8 {
		t.Fatalf("entries: got %d want 8", len(entries))
	}
	if entries[2].Event != commands.EventFailed || entries[2].Error == "" {
		t.Fatalf("failed entry: %+v", entries[2])
	}
	if entries[3].Tick != 1 {
		t.Fatalf("tick not journaled: %+v", entries[3])
	}

	replayed := world.New()
	rl, err := Replay(replayed, commands.ModeLocal, entries)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.Digest() != live.Digest() {
		t.Fatalf("digest mismatch after replay")
	}
	if len(rl.Applied()) != len(l.Applied()) || len(rl.Undone()) != len(l.Undone()) {
		t.Fatalf("history shape: applied %d/%d undone %d/%d",
			len(rl.Applied()), len(l.Applied()), len(rl.Undone()), len(l.Undone()))
	}
}
