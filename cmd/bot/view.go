package main

import (
	"encoding/json"
	"sort"

	"gridtactics.dev/internal/sim/game"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/world"
)

type unit struct {
	ID    ids.ObjectID
	Pos   objects.Position
	Owner players.ID
	Owned bool
}

// view is the bot's picture of the game, folded from STATE events.
type view struct {
	me    players.ID
	units map[ids.ObjectID]*unit
	turn  *game.TurnState
}

func newView(me players.ID) *view {
	return &view{me: me, units: map[ids.ObjectID]*unit{}}
}

func (v *view) apply(full bool, raw json.RawMessage) error {
	var evs []state.Event
	if err := json.Unmarshal(raw, &evs); err != nil {
		return err
	}
	if full {
		v.units = map[ids.ObjectID]*unit{}
	}
	for _, ev := range evs {
		switch ev.Entity.Kind {
		case world.KindObject:
			if ev.Kind == state.Despawned {
				delete(v.units, ev.Entity.Object)
				continue
			}
			u := v.units[ev.Entity.Object]
			if u == nil {
				u = &unit{ID: ev.Entity.Object}
				v.units[u.ID] = u
			}
			for _, c := range ev.Components {
				switch c.ID {
				case state.IDGridPosition:
					_ = json.Unmarshal(c.Data, &u.Pos)
				case state.IDPlayerMarker:
					var m players.Marker
					if json.Unmarshal(c.Data, &m) == nil {
						u.Owner, u.Owned = m.Player, true
					}
				}
			}
		case world.KindResource:
			if ev.Entity.Resource != game.TurnResource {
				continue
			}
			for _, c := range ev.Components {
				var ts game.TurnState
				if c.ID == game.IDTurn && json.Unmarshal(c.Data, &ts) == nil {
					v.turn = &ts
				}
			}
		}
	}
	return nil
}

// myTurn reports whether the bot may act. Without a turn resource the game is
// real-time and every player may act.
func (v *view) myTurn() bool {
	return v.turn == nil || v.turn.Player == v.me
}

// mine returns the placed units owned by the bot, ordered by id.
func (v *view) mine() []unit {
	var out []unit
	for _, u := range v.units {
		if u.Owned && u.Owner == v.me && u.Pos.Placed {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var steps = [...]mapping.TilePos{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}

// step picks a neighboring destination for u; pick chooses among the four cardinal steps.
func step(u unit, pick func(n int) int) mapping.TilePos {
	d := steps[pick(len(steps))]
	return u.Pos.Tile.Add(d.X, d.Y)
}
