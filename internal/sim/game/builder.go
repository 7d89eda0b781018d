package game

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/movement"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/world"
)

// Builder collects everything a game needs before its first tick.
type Builder struct {
	id         string
	runner     Runner
	opts       commands.Options
	initial    []commands.Command
	regs       []func(c *state.Components) error
	roster     []players.Player
	visibility state.Visibility
	calc       *movement.Calculator
	tickRate   int

	snapEvery uint64
	onSnap    func(snapshot.SnapshotV1)
}

func NewBuilder(id string) *Builder {
	return &Builder{id: id, tickRate: 5}
}

func (b *Builder) WithRunner(r Runner) *Builder { b.runner = r; return b }

func (b *Builder) WithMode(m commands.Mode) *Builder { b.opts.Mode = m; return b }

func (b *Builder) WithStrict(strict bool) *Builder { b.opts.Strict = strict; return b }

func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder { b.opts.Logger = l; return b }

func (b *Builder) WithClock(c func() time.Time) *Builder { b.opts.Clock = c; return b }

func (b *Builder) WithHooks(hs ...commands.Hook) *Builder {
	b.opts.Hooks = append(b.opts.Hooks, hs...)
	return b
}

// WithCommands adds commands executed during Build, in order.
func (b *Builder) WithCommands(cmds ...commands.Command) *Builder {
	b.initial = append(b.initial, cmds...)
	return b
}

// Register adds component or resource registrations, e.g.
// state.RegisterObjectComponent[Health] bound to an id.
func (b *Builder) Register(fns ...func(c *state.Components) error) *Builder {
	b.regs = append(b.regs, fns...)
	return b
}

func (b *Builder) WithPlayers(ps ...players.Player) *Builder {
	b.roster = append(b.roster, ps...)
	return b
}

func (b *Builder) WithVisibility(v state.Visibility) *Builder { b.visibility = v; return b }

func (b *Builder) WithCalculator(c *movement.Calculator) *Builder { b.calc = c; return b }

func (b *Builder) WithTickRate(hz int) *Builder { b.tickRate = hz; return b }

// WithSnapshots makes the run loop export a snapshot every n ticks.
func (b *Builder) WithSnapshots(every uint64, fn func(snapshot.SnapshotV1)) *Builder {
	b.snapEvery, b.onSnap = every, fn
	return b
}

// Build creates the world, executes the initial commands and fails if any of them
// fails.
func (b *Builder) Build() (*Game, error) {
	if b.runner == nil {
		return nil, fmt.Errorf("game %s: no runner", b.id)
	}
	if b.tickRate <= 0 {
		return nil, fmt.Errorf("game %s: tick rate must be positive", b.id)
	}
	comps := state.DefaultComponents()
	for _, fn := range b.regs {
		if err := fn(comps); err != nil {
			return nil, fmt.Errorf("game %s: register: %w", b.id, err)
		}
	}

	w := world.New()
	for _, p := range b.roster {
		if err := w.AddPlayer(p); err != nil {
			return nil, fmt.Errorf("game %s: %w", b.id, err)
		}
	}
	calc := b.calc
	if calc == nil {
		calc = movement.NewCalculator(false)
	}
	l := commands.NewLog(b.opts)
	g := newGame(b.id, w, l, b.runner, state.NewProjector(comps, b.visibility), movement.NewOrchestrator(calc, l), b.tickRate)
	g.snapEvery, g.onSnap = b.snapEvery, b.onSnap
	if lg := b.opts.Logger; lg != nil {
		g.logger = lg
	}

	for _, cmd := range b.initial {
		l.Add(cmd)
	}
	if err := l.ExecuteBuffer(w); err != nil {
		return nil, fmt.Errorf("game %s: initial commands: %w", b.id, err)
	}
	if n := len(l.Applied()); n != len(b.initial) {
		return nil, fmt.Errorf("game %s: %d of %d initial commands failed", b.id, len(b.initial)-n, len(b.initial))
	}
	l.Seal()
	return g, nil
}
