package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/combat"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/game"
	"gridtactics.dev/internal/sim/movement"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/tuning"
)

// buildGame turns a tuning file into a game with its setup commands applied.
func buildGame(id string, tune tuning.Tuning, logger logrus.FieldLogger, onSnap func(snapshot.SnapshotV1), hooks ...commands.Hook) (*game.Game, error) {
	mode, err := commands.ParseMode(tune.LogMode)
	if err != nil {
		return nil, err
	}
	setup, err := tune.Setup()
	if err != nil {
		return nil, err
	}

	var runner game.Runner
	switch tune.Runner {
	case "real_time":
		runner = &game.RealTime{}
	case "turn_based":
		order := make([]players.ID, 0, len(tune.Players))
		for _, p := range tune.Players {
			order = append(order, p.ID)
		}
		runner = game.NewTurnBased(order...)
	default:
		return nil, fmt.Errorf("unknown runner %q", tune.Runner)
	}

	b := game.NewBuilder(id).
		WithRunner(runner).
		WithMode(mode).
		WithStrict(tune.Strict).
		WithLogger(logger).
		WithHooks(hooks...).
		WithTickRate(tune.TickRateHz).
		WithPlayers(tune.Players...).
		WithVisibility(state.OwnerOnly).
		WithCalculator(movement.NewCalculator(tune.Diagonals)).
		Register(combat.Register, game.TrackRunnerResources).
		WithCommands(setup...)
	if tune.SnapshotEveryTicks > 0 && onSnap != nil {
		b = b.WithSnapshots(uint64(tune.SnapshotEveryTicks), onSnap)
	}
	return b.Build()
}
