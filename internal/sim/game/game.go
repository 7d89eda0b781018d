// Package game ties the command log, movement, projector and a runner into one
// game instance driven by ticks.
package game

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/movement"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/world"
)

// Game owns one world. Its methods are not safe for concurrent use; Run serializes
// access for networked hosts.
type Game struct {
	id       string
	w        *world.World
	log      *commands.Log
	runner   Runner
	proj     *state.Projector
	orch     *movement.Orchestrator
	logger   logrus.FieldLogger
	tickRate int

	snapEvery uint64
	onSnap    func(snapshot.SnapshotV1)

	inbox       chan Request
	subscribe   chan SubscribeRequest
	unsubscribe chan players.ID
	stop        chan struct{}
	done        chan struct{}
	subs        map[players.ID]*subscriber

	lastTick    atomic.Uint64
	subCount    atomic.Int64
	historySize atomic.Int64
}

// Metrics is a view of a running game that is safe to read from any goroutine.
type Metrics struct {
	Tick        uint64
	Subscribers int
	History     int
	InboxDepth  int
}

func (g *Game) Metrics() Metrics {
	return Metrics{
		Tick:        g.lastTick.Load(),
		Subscribers: int(g.subCount.Load()),
		History:     int(g.historySize.Load()),
		InboxDepth:  len(g.inbox),
	}
}

func newGame(id string, w *world.World, l *commands.Log, r Runner, p *state.Projector, o *movement.Orchestrator, tickRate int) *Game {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return &Game{
		id:          id,
		w:           w,
		log:         l,
		runner:      r,
		proj:        p,
		orch:        o,
		logger:      lg,
		tickRate:    tickRate,
		inbox:       make(chan Request, 256),
		subscribe:   make(chan SubscribeRequest, 16),
		unsubscribe: make(chan players.ID, 16),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		subs:        map[players.ID]*subscriber{},
	}
}

func (g *Game) ID() string                                { return g.id }
func (g *Game) World() *world.World                       { return g.w }
func (g *Game) Log() *commands.Log                        { return g.log }
func (g *Game) Projector() *state.Projector               { return g.proj }
func (g *Game) Runner() Runner                            { return g.runner }
func (g *Game) TickRateHz() int                           { return g.tickRate }
func (g *Game) CurrentTick() uint64                       { return g.w.CurrentTick() }
func (g *Game) Simulate() error                           { return g.runner.Simulate(g.w) }
func (g *Game) Enqueue(r commands.Record) commands.Record { return g.log.Enqueue(r) }

func (g *Game) EntireState(player *players.ID) ([]state.Event, error) {
	return g.proj.EntireState(g.w, player)
}

func (g *Game) StateDiff(player players.ID) ([]state.Event, error) {
	return g.proj.StateDiff(g.w, player)
}

func (g *Game) RequestMove(req movement.MoveRequest) (commands.Record, error) {
	return g.orch.RequestMove(g.w, req)
}

func (g *Game) AvailableMoves(id ids.ObjectID) ([]mapping.TilePos, error) {
	return g.orch.AvailableMoves(g.w, id)
}

// Undo asks for the last n applied records to be rolled back on the next tick.
// The setup history sealed by Build is never rolled back.
func (g *Game) Undo(n int) { g.log.RequestRollback(n) }

// Redo asks for the last n undone records to be re-applied on the next tick.
func (g *Game) Redo(n int) { g.log.RequestRollforward(n) }

// EndTurn ends the player's turn when the game is turn based.
func (g *Game) EndTurn(p players.ID) error {
	tb, ok := g.runner.(*TurnBased)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTurnBased, g.id)
	}
	return tb.EndTurn(p)
}

// TickResult is what one tick produced.
type TickResult struct {
	Tick    uint64
	Updates map[players.ID][]state.Event
	// Failed holds the joined command failures in strict mode.
	Failed error
}

// Tick runs one full tick for every player that wants state events.
func (g *Game) Tick() (TickResult, error) {
	return g.tick(g.w.Players().StateConsumers())
}

// tick runs the phases in order: drain commands, drain rollbacks, drain
// rollforwards, simulate, project. An irreversible rollback stops the tick.
func (g *Game) tick(consumers []players.ID) (TickResult, error) {
	res := TickResult{Tick: g.w.CurrentTick()}

	if err := g.log.ExecuteBuffer(g.w); err != nil {
		if errors.Is(err, commands.ErrIrreversible) {
			return res, fmt.Errorf("tick %d: %w", res.Tick, err)
		}
		res.Failed = err
	}
	if err := g.log.DrainRollbacks(g.w); err != nil {
		return res, fmt.Errorf("tick %d: %w", res.Tick, err)
	}
	if err := g.log.DrainRollforwards(g.w); err != nil {
		return res, fmt.Errorf("tick %d: %w", res.Tick, err)
	}
	if err := g.runner.Simulate(g.w); err != nil {
		return res, fmt.Errorf("tick %d: simulate: %w", res.Tick, err)
	}
	g.w.AdvanceTick()

	res.Updates = make(map[players.ID][]state.Event, len(consumers))
	for _, p := range consumers {
		evs, err := g.proj.StateDiff(g.w, p)
		if err != nil {
			return res, fmt.Errorf("tick %d: project for player %d: %w", res.Tick, p, err)
		}
		res.Updates[p] = evs
	}
	g.proj.Compact(g.w, consumers)
	return res, nil
}

// Snapshot exports the world.
func (g *Game) Snapshot() (snapshot.SnapshotV1, error) {
	return g.w.ExportSnapshot(g.id)
}
