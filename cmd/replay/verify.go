package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	persistlog "gridtactics.dev/internal/persistence/log"
	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/world"
)

type result struct {
	Entries  int
	History  int
	Tick     uint64
	Digest   string
	Snapshot string
}

// verify replays the journal of gameDir on an empty world. With a snapshot it
// only replays what happened before the snapshot tick and compares entity
// digests.
func verify(gameDir, snapPath string, mode commands.Mode) (result, error) {
	var res result
	entries, err := persistlog.ReadJournal(gameDir)
	if err != nil {
		return res, fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		return res, fmt.Errorf("no journal entries in %s", gameDir)
	}

	var want *world.World
	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return res, fmt.Errorf("read snapshot: %w", err)
		}
		want = world.New()
		if err := want.ImportSnapshot(snap); err != nil {
			return res, fmt.Errorf("import snapshot: %w", err)
		}
		cut := len(entries)
		for i, e := range entries {
			if e.Tick >= snap.Header.Tick {
				cut = i
				break
			}
		}
		entries = entries[:cut]
		res.Snapshot = snapPath
	}

	w := world.New()
	l, err := persistlog.Replay(w, mode, entries)
	if err != nil {
		return res, err
	}
	if err := w.CheckInvariants(); err != nil {
		return res, fmt.Errorf("replayed world: %w", err)
	}
	res.Entries = len(entries)
	res.History = l.HistoryLen()
	res.Tick = w.CurrentTick()
	res.Digest = w.EntityDigest()
	if want != nil {
		if got, exp := res.Digest, want.EntityDigest(); got != exp {
			return res, fmt.Errorf("digest mismatch: replay=%s snapshot=%s", got, exp)
		}
	}
	return res, nil
}

func latestSnapshot(gameDir string) string {
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
