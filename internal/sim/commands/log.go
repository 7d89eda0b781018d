package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/world"
)

type Mode uint8

const (
	// ModeLocal applies records in arrival order.
	ModeLocal Mode = iota
	// ModeNetworked keeps history ordered by timestamp through rollback and replay.
	ModeNetworked
)

func (m Mode) String() string {
	if m == ModeNetworked {
		return "networked"
	}
	return "local"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "local":
		return ModeLocal, nil
	case "networked":
		return ModeNetworked, nil
	default:
		return 0, fmt.Errorf("unknown log mode %q", s)
	}
}

type EventType string

const (
	EventApplied       EventType = "applied"
	EventFailed        EventType = "failed"
	EventRolledBack    EventType = "rolled_back"
	EventRolledForward EventType = "rolled_forward"
)

// Event describes one history transition, reported to hooks.
type Event struct {
	Type   EventType
	Tick   uint64
	Record Record
	Err    error
}

// Hook observes history transitions. Hooks run synchronously inside the drain.
type Hook interface {
	OnCommand(ev Event)
}

type HookFunc func(ev Event)

func (f HookFunc) OnCommand(ev Event) { f(ev) }

type Options struct {
	Mode Mode
	// Strict makes ExecuteBuffer report failed records instead of only logging them.
	Strict bool
	Logger logrus.FieldLogger
	Hooks  []Hook
	// Clock stamps records enqueued without a timestamp. Defaults to time.Now.
	Clock func() time.Time
}

// Log is the command history of one game: a pending queue, the applied stack and
// the undone stack. It is driven by a single writer.
type Log struct {
	opts Options
	log  logrus.FieldLogger

	pending []Record
	applied []Record
	undone  []Record
	// floor is the length of the sealed prefix of applied. Nothing below it is
	// rolled back.
	floor int

	rollbacks    []historyReq
	rollforwards []historyReq
	arrival      uint64
}

// historyReq asks for n undo or redo steps. A scoped request only touches
// records issued by player and stops at the first record that is not.
type historyReq struct {
	n      int
	scoped bool
	player players.ID
}

func (h historyReq) allows(r Record) bool {
	return !h.scoped || (r.Origin == OriginPlayer && r.Player == h.player)
}

func NewLog(opts Options) *Log {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	lg := opts.Logger
	if lg == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		lg = l
	}
	return &Log{opts: opts, log: lg}
}

func (l *Log) Mode() Mode { return l.opts.Mode }

func (l *Log) AddHook(h Hook) { l.opts.Hooks = append(l.opts.Hooks, h) }

// Enqueue appends a record to the pending queue. Records without a timestamp are
// stamped with the log clock.
func (l *Log) Enqueue(r Record) Record {
	l.arrival++
	return l.enqueueAt(r, l.arrival)
}

func (l *Log) enqueueAt(r Record, arrival uint64) Record {
	if r.Timestamp == 0 {
		r.Timestamp = l.opts.Clock().UnixNano()
	}
	r.arrival = arrival
	r.hash = hashRecord(r)
	l.pending = append(l.pending, r)
	return r
}

// Add enqueues a system command and returns its record.
func (l *Log) Add(cmd Command) Record {
	return l.Enqueue(Record{Command: cmd, Origin: OriginSystem})
}

// AddFor enqueues a command issued by a player.
func (l *Log) AddFor(p players.ID, cmd Command) Record {
	return l.Enqueue(Record{Command: cmd, Origin: OriginPlayer, Player: p})
}

// Merge enqueues records replicated from a peer. They share one arrival slot, so
// equal timestamps among them are ordered by origin and then by hash.
func (l *Log) Merge(rs []Record) {
	if len(rs) == 0 {
		return
	}
	l.arrival++
	batch := make([]Record, 0, len(rs))
	for _, r := range rs {
		if r.Timestamp == 0 {
			r.Timestamp = l.opts.Clock().UnixNano()
		}
		r.arrival = l.arrival
		r.hash = hashRecord(r)
		batch = append(batch, r)
	}
	sort.SliceStable(batch, func(i, j int) bool { return before(batch[i], batch[j]) })
	l.pending = append(l.pending, batch...)
}

func (l *Log) RequestRollback(n int) {
	if n > 0 {
		l.rollbacks = append(l.rollbacks, historyReq{n: n})
	}
}

func (l *Log) RequestRollforward(n int) {
	if n > 0 {
		l.rollforwards = append(l.rollforwards, historyReq{n: n})
	}
}

// RequestRollbackFor asks to undo up to n trailing records issued by p.
func (l *Log) RequestRollbackFor(p players.ID, n int) {
	if n > 0 {
		l.rollbacks = append(l.rollbacks, historyReq{n: n, scoped: true, player: p})
	}
}

// RequestRollforwardFor asks to redo up to n undone records issued by p.
func (l *Log) RequestRollforwardFor(p players.ID, n int) {
	if n > 0 {
		l.rollforwards = append(l.rollforwards, historyReq{n: n, scoped: true, player: p})
	}
}

// Seal fixes the current history as a floor that rollbacks never cross.
func (l *Log) Seal() {
	l.floor = len(l.applied)
	l.undone = nil
}

// Floor is the number of sealed records at the bottom of the history.
func (l *Log) Floor() int { return l.floor }

// UndoableBy reports how many trailing unsealed records in a row p issued.
func (l *Log) UndoableBy(p players.ID) int {
	req := historyReq{scoped: true, player: p}
	n := 0
	for i := len(l.applied) - 1; i >= l.floor && req.allows(l.applied[i]); i-- {
		n++
	}
	return n
}

// RedoableBy reports how many records on top of the undone stack in a row p issued.
func (l *Log) RedoableBy(p players.ID) int {
	req := historyReq{scoped: true, player: p}
	n := 0
	for i := len(l.undone) - 1; i >= 0 && req.allows(l.undone[i]); i-- {
		n++
	}
	return n
}

func (l *Log) Pending() []Record { return append([]Record(nil), l.pending...) }
func (l *Log) Applied() []Record { return append([]Record(nil), l.applied...) }
func (l *Log) Undone() []Record  { return append([]Record(nil), l.undone...) }

// HistoryLen is the number of applied records.
func (l *Log) HistoryLen() int { return len(l.applied) }

// ExecuteBuffer drains the pending queue into history. Failed records are logged
// and discarded; in strict mode their errors are also returned. An irreversible
// rollback during networked replay aborts the drain.
func (l *Log) ExecuteBuffer(w *world.World) error {
	pending := l.pending
	l.pending = nil

	var failed []error
	if len(pending) > 0 {
		l.undone = nil
	}
	for i, r := range pending {
		var err error
		if l.opts.Mode == ModeNetworked {
			err = l.insertOrdered(w, r)
		} else {
			err = r.Command.Execute(w)
			if err == nil {
				l.applied = append(l.applied, r)
				l.emit(w, Event{Type: EventApplied, Record: r})
			}
		}
		if errors.Is(err, ErrIrreversible) {
			rest := append([]Record(nil), pending[i+1:]...)
			l.pending = append(rest, l.pending...)
			return fmt.Errorf("execute %s: %w", r.Kind(), err)
		}
		if err != nil {
			l.fail(w, r, err)
			failed = append(failed, fmt.Errorf("%s: %w", r.Kind(), err))
		}
	}
	if l.opts.Strict {
		return errors.Join(failed...)
	}
	return nil
}

// insertOrdered rolls back every applied record ordered after r, executes r and
// replays the rolled back suffix. Suffix records that no longer apply are dropped.
// A record older than the sealed history lands right above the floor.
func (l *Log) insertOrdered(w *world.World, r Record) error {
	k := sort.Search(len(l.applied), func(i int) bool { return before(r, l.applied[i]) })
	if k < l.floor {
		k = l.floor
	}
	suffix := append([]Record(nil), l.applied[k:]...)
	for i := len(suffix) - 1; i >= 0; i-- {
		if err := suffix[i].Command.Rollback(w); err != nil {
			l.applied = l.applied[:k+i+1]
			return irreversible(suffix[i], err)
		}
	}
	l.applied = l.applied[:k]

	execErr := r.Command.Execute(w)
	if execErr == nil {
		l.applied = append(l.applied, r)
		l.emit(w, Event{Type: EventApplied, Record: r})
	}
	for _, s := range suffix {
		if err := s.Command.Execute(w); err != nil {
			l.log.WithFields(l.fields(s)).WithError(err).Warn("command dropped on replay")
			l.emit(w, Event{Type: EventFailed, Record: s, Err: err})
			continue
		}
		l.applied = append(l.applied, s)
	}
	return execErr
}

// DrainRollbacks consumes the pending rollback requests in order. Requests
// beyond the unsealed history, or past a record a scoped request may not touch,
// are dropped.
func (l *Log) DrainRollbacks(w *world.World) error {
	reqs := l.rollbacks
	l.rollbacks = nil
	for _, req := range reqs {
		for n := req.n; n > 0 && len(l.applied) > l.floor; n-- {
			r := l.applied[len(l.applied)-1]
			if !req.allows(r) {
				break
			}
			if err := r.Command.Rollback(w); err != nil {
				return irreversible(r, err)
			}
			l.applied = l.applied[:len(l.applied)-1]
			l.undone = append(l.undone, r)
			l.emit(w, Event{Type: EventRolledBack, Record: r})
		}
	}
	return nil
}

// DrainRollforwards re-executes the most recently undone records. A record that
// no longer applies is logged and dropped.
func (l *Log) DrainRollforwards(w *world.World) error {
	reqs := l.rollforwards
	l.rollforwards = nil
	for _, req := range reqs {
		for n := req.n; n > 0 && len(l.undone) > 0; n-- {
			r := l.undone[len(l.undone)-1]
			if !req.allows(r) {
				break
			}
			l.undone = l.undone[:len(l.undone)-1]
			if err := r.Command.Execute(w); err != nil {
				if errors.Is(err, ErrIrreversible) {
					return irreversible(r, err)
				}
				l.fail(w, r, err)
				continue
			}
			l.applied = append(l.applied, r)
			l.emit(w, Event{Type: EventRolledForward, Record: r})
		}
	}
	return nil
}

func irreversible(r Record, err error) error {
	if errors.Is(err, ErrIrreversible) {
		return fmt.Errorf("rollback %s: %w", r.Kind(), err)
	}
	return fmt.Errorf("rollback %s: %w: %v", r.Kind(), ErrIrreversible, err)
}

func (l *Log) fail(w *world.World, r Record, err error) {
	l.log.WithFields(l.fields(r)).WithError(err).Warn("command failed")
	l.emit(w, Event{Type: EventFailed, Record: r, Err: err})
}

func (l *Log) fields(r Record) logrus.Fields {
	f := logrus.Fields{
		"command":   r.Kind(),
		"origin":    r.Origin.String(),
		"timestamp": r.Timestamp,
	}
	if r.Origin == OriginPlayer {
		f["player"] = r.Player
	}
	if env, err := Encode(r); err == nil {
		f["params"] = string(env.Payload)
	}
	return f
}

func (l *Log) emit(w *world.World, ev Event) {
	if len(l.opts.Hooks) == 0 {
		return
	}
	ev.Tick = w.CurrentTick()
	for _, h := range l.opts.Hooks {
		h.OnCommand(ev)
	}
}
