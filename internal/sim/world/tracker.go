package world

import (
	"fmt"
	"sort"

	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/players"
)

type EntityKind uint8

const (
	KindTile EntityKind = iota + 1
	KindObject
	KindResource
	KindPlayer
)

func (k EntityKind) String() string {
	switch k {
	case KindTile:
		return "tile"
	case KindObject:
		return "object"
	case KindResource:
		return "resource"
	case KindPlayer:
		return "player"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// EntityKey identifies one reflectable entity. Only the fields relevant to Kind are set.
type EntityKey struct {
	Kind     EntityKind      `json:"kind"`
	Object   ids.ObjectID    `json:"object,omitempty"`
	Map      ids.MapID       `json:"map,omitempty"`
	Tile     mapping.TilePos `json:"tile"`
	Resource string          `json:"resource,omitempty"`
	Player   players.ID      `json:"player,omitempty"`
}

func TileKey(m ids.MapID, p mapping.TilePos) EntityKey {
	return EntityKey{Kind: KindTile, Map: m, Tile: p}
}
func ObjectKey(id ids.ObjectID) EntityKey { return EntityKey{Kind: KindObject, Object: id} }
func ResourceKey(name string) EntityKey   { return EntityKey{Kind: KindResource, Resource: name} }
func PlayerKey(id players.ID) EntityKey   { return EntityKey{Kind: KindPlayer, Player: id} }

// Less orders keys by kind, then by their identifying fields.
func (k EntityKey) Less(o EntityKey) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	switch k.Kind {
	case KindTile:
		if k.Map != o.Map {
			return k.Map < o.Map
		}
		if k.Tile.Y != o.Tile.Y {
			return k.Tile.Y < o.Tile.Y
		}
		return k.Tile.X < o.Tile.X
	case KindObject:
		return k.Object < o.Object
	case KindResource:
		return k.Resource < o.Resource
	default:
		return k.Player < o.Player
	}
}

func (k EntityKey) String() string {
	switch k.Kind {
	case KindTile:
		return fmt.Sprintf("tile %s%s", k.Map, k.Tile)
	case KindObject:
		return "object " + k.Object.String()
	case KindResource:
		return "resource " + k.Resource
	default:
		return fmt.Sprintf("player %d", k.Player)
	}
}

// Tracker records, per entity, the sequence number of its latest change.
// Consumers keep a cursor and ask for everything newer.
type Tracker struct {
	seq     uint64
	markers map[EntityKey]uint64
}

func NewTracker() *Tracker {
	return &Tracker{markers: map[EntityKey]uint64{}}
}

func (t *Tracker) Seq() uint64 { return t.seq }

func (t *Tracker) Spawned(k EntityKey)   { t.mark(k) }
func (t *Tracker) Modified(k EntityKey)  { t.mark(k) }
func (t *Tracker) Despawned(k EntityKey) { t.mark(k) }

func (t *Tracker) mark(k EntityKey) {
	t.seq++
	t.markers[k] = t.seq
}

// ChangedSince returns the keys changed after cursor, in key order.
func (t *Tracker) ChangedSince(cursor uint64) []EntityKey {
	var out []EntityKey
	for k, s := range t.markers {
		if s > cursor {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Compact clears markers every consumer has already read past.
func (t *Tracker) Compact(upTo uint64) {
	for k, s := range t.markers {
		if s <= upTo {
			delete(t.markers, k)
		}
	}
}

func (t *Tracker) Len() int { return len(t.markers) }
