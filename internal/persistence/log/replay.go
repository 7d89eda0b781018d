package log

import (
	"fmt"

	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/world"
)

// Replay rebuilds history on w by feeding the journal through a fresh log in the
// same mode. Failed entries are skipped; the log reproduces them on its own.
func Replay(w *world.World, mode commands.Mode, entries []Entry) (*commands.Log, error) {
	l := commands.NewLog(commands.Options{Mode: mode, Strict: true})
	for _, e := range entries {
		for w.CurrentTick() < e.Tick {
			w.AdvanceTick()
		}
		switch e.Event {
		case commands.EventApplied:
			rec, err := commands.Decode(e.Envelope)
			if err != nil {
				return l, fmt.Errorf("entry %d: %w", e.Seq, err)
			}
			l.Enqueue(rec)
			if err := l.ExecuteBuffer(w); err != nil {
				return l, fmt.Errorf("entry %d: %w", e.Seq, err)
			}
		case commands.EventRolledBack:
			l.RequestRollback(1)
			if err := l.DrainRollbacks(w); err != nil {
				return l, fmt.Errorf("entry %d: %w", e.Seq, err)
			}
		case commands.EventRolledForward:
			l.RequestRollforward(1)
			if err := l.DrainRollforwards(w); err != nil {
				return l, fmt.Errorf("entry %d: %w", e.Seq, err)
			}
		case commands.EventFailed:
		default:
			return l, fmt.Errorf("entry %d: unknown event %q", e.Seq, e.Event)
		}
	}
	return l, nil
}
