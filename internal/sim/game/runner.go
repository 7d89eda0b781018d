package game

import (
	"errors"
	"fmt"

	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/world"
)

// Runner is the game-specific simulation step, run once per tick after the
// command phases.
type Runner interface {
	Simulate(w *world.World) error
}

type RunnerFunc func(w *world.World) error

func (f RunnerFunc) Simulate(w *world.World) error { return f(w) }

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrNotTurnBased  = errors.New("game is not turn based")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrPlayerBusy    = errors.New("player already connected")
	// ErrHistoryNotOwned rejects an undo or redo that would touch records the
	// player did not issue.
	ErrHistoryNotOwned = errors.New("history not owned by player")
)

// Resource names published by the built-in runners.
const (
	TurnResource  = "turn"
	ClockResource = "clock"
)

// Component ids of the runner resources.
const (
	IDTurn  state.ComponentID = 24
	IDClock state.ComponentID = 25
)

// TrackRunnerResources puts the turn and clock resources into state events.
func TrackRunnerResources(c *state.Components) error {
	if err := state.RegisterResource[TurnState](c, IDTurn, TurnResource); err != nil {
		return err
	}
	return state.RegisterResource[uint64](c, IDClock, ClockResource)
}

// TurnState is the turn resource.
type TurnState struct {
	Player players.ID `json:"player"`
	Turn   uint64     `json:"turn"`
}

// TurnBased hands the turn to players in Order. A turn ends when EndTurn is
// called; the switch happens on the next Simulate.
type TurnBased struct {
	Order   []players.ID
	Current int
	Turn    uint64

	ending    bool
	published bool
}

func NewTurnBased(order ...players.ID) *TurnBased {
	return &TurnBased{Order: append([]players.ID(nil), order...)}
}

func (r *TurnBased) Active() players.ID {
	if len(r.Order) == 0 {
		return 0
	}
	return r.Order[r.Current%len(r.Order)]
}

// EndTurn ends the active player's turn. Only the active player may end it.
func (r *TurnBased) EndTurn(p players.ID) error {
	if len(r.Order) == 0 {
		return fmt.Errorf("no players")
	}
	if p != r.Active() {
		return fmt.Errorf("%w: player %d is not active", ErrNotYourTurn, p)
	}
	r.ending = true
	return nil
}

func (r *TurnBased) Simulate(w *world.World) error {
	if len(r.Order) == 0 {
		return nil
	}
	if r.ending {
		r.ending = false
		r.Current++
		if r.Current >= len(r.Order) {
			r.Current = 0
			r.Turn++
		}
	} else if r.published {
		return nil
	}
	r.published = true
	return w.SetResource(TurnResource, TurnState{Player: r.Active(), Turn: r.Turn})
}

// RealTime counts ticks and publishes the count as the clock resource.
type RealTime struct {
	Ticks uint64
}

func (r *RealTime) Simulate(w *world.World) error {
	if r.Ticks < ^uint64(0) {
		r.Ticks++
	}
	return w.SetResource(ClockResource, r.Ticks)
}
