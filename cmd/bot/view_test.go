package main

import (
	"encoding/json"
	"testing"

	"gridtactics.dev/internal/sim/game"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/world"
)

func component(t *testing.T, id state.ComponentID, v any) state.ComponentData {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return state.ComponentData{ID: id, Data: b}
}

func objectEvent(t *testing.T, id ids.ObjectID, owner players.ID, at mapping.TilePos) state.Event {
	return state.Event{
		Kind:   state.NoChange,
		Entity: world.ObjectKey(id),
		Components: []state.ComponentData{
			component(t, state.IDGridPosition, objects.Position{Map: 1, Tile: at, Placed: true}),
			component(t, state.IDPlayerMarker, players.Marker{Player: owner}),
		},
	}
}

func encode(t *testing.T, evs []state.Event) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(evs)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}
	return b
}

func TestViewTracksOwnedUnits(t *testing.T) {
	v := newView(1)
	full := []state.Event{
		objectEvent(t, 3, 1, mapping.TilePos{X: 2, Y: 2}),
		objectEvent(t, 1, 1, mapping.TilePos{X: 0, Y: 0}),
		objectEvent(t, 2, 2, mapping.TilePos{X: 4, Y: 4}),
	}
	if err := v.apply(true, encode(t, full)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	mine := v.mine()
	if len(mine) != 2 || mine[0].ID != 1 || mine[1].ID != 3 {
		t.Fatalf("mine = %+v", mine)
	}
	if !v.myTurn() {
		t.Fatalf("no turn resource should mean real-time")
	}

	moved := []state.Event{{
		Kind:       state.Modified,
		Entity:     world.ObjectKey(1),
		Components: []state.ComponentData{component(t, state.IDGridPosition, objects.Position{Map: 1, Tile: mapping.TilePos{X: 1, Y: 0}, Placed: true})},
	}}
	if err := v.apply(false, encode(t, moved)); err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if got := v.mine()[0].Pos.Tile; got != (mapping.TilePos{X: 1, Y: 0}) {
		t.Fatalf("unit 1 at %v after delta", got)
	}

	gone := []state.Event{{Kind: state.Despawned, Entity: world.ObjectKey(3)}}
	if err := v.apply(false, encode(t, gone)); err != nil {
		t.Fatalf("apply despawn: %v", err)
	}
	if mine := v.mine(); len(mine) != 1 || mine[0].ID != 1 {
		t.Fatalf("after despawn mine = %+v", mine)
	}

	if err := v.apply(true, encode(t, full[2:])); err != nil {
		t.Fatalf("apply full: %v", err)
	}
	if len(v.mine()) != 0 {
		t.Fatalf("full state should reset the view")
	}
}

func TestViewFollowsTurnResource(t *testing.T) {
	v := newView(2)
	turn := func(p players.ID, n uint64) json.RawMessage {
		return encode(t, []state.Event{{
			Kind:       state.Modified,
			Entity:     world.ResourceKey(game.TurnResource),
			Components: []state.ComponentData{component(t, game.IDTurn, game.TurnState{Player: p, Turn: n})},
		}})
	}
	if err := v.apply(false, turn(1, 1)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if v.myTurn() {
		t.Fatalf("player 1 is active")
	}
	if err := v.apply(false, turn(2, 2)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !v.myTurn() {
		t.Fatalf("player 2 should be active")
	}
}

func TestStepStaysAdjacent(t *testing.T) {
	u := unit{Pos: objects.Position{Tile: mapping.TilePos{X: 3, Y: 3}}}
	for i := 0; i < len(steps); i++ {
		to := step(u, func(int) int { return i })
		dx, dy := to.X-3, to.Y-3
		if dx*dx+dy*dy != 1 {
			t.Fatalf("step %d went to %v", i, to)
		}
	}
}
