package state

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/world"
)

type EventKind uint8

const (
	NoChange EventKind = iota
	Modified
	Spawned
	Despawned
)

func (k EventKind) String() string {
	switch k {
	case NoChange:
		return "no_change"
	case Modified:
		return "modified"
	case Spawned:
		return "spawned"
	case Despawned:
		return "despawned"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "no_change":
		*k = NoChange
	case "modified":
		*k = Modified
	case "spawned":
		*k = Spawned
	case "despawned":
		*k = Despawned
	default:
		return fmt.Errorf("unknown event kind %q", b)
	}
	return nil
}

// Event is the state of one entity as seen by one player. Despawned events carry
// no components.
type Event struct {
	Kind       EventKind       `json:"kind"`
	Entity     world.EntityKey `json:"entity"`
	Components []ComponentData `json:"components,omitempty"`
}

// Visibility decides whether player may see the entity.
type Visibility func(w *world.World, player players.ID, key world.EntityKey) bool

// OwnerOnly hides owned objects from everyone but their owner. Unowned objects and
// all other entities are public.
func OwnerOnly(w *world.World, player players.ID, key world.EntityKey) bool {
	if key.Kind != world.KindObject {
		return true
	}
	o, ok := w.Object(key.Object)
	if !ok || o.Owner == nil {
		return true
	}
	return o.OwnedBy(player)
}

type view struct {
	cursor uint64
	// known maps each entity the player has been told about to the digest of
	// what it was told.
	known map[world.EntityKey]uint64
}

// Projector turns world changes into per-player state events. It only reads the
// world and must not run while commands are being drained.
type Projector struct {
	comps   *Components
	visible Visibility
	views   map[players.ID]*view
}

func NewProjector(comps *Components, visible Visibility) *Projector {
	if comps == nil {
		comps = DefaultComponents()
	}
	return &Projector{comps: comps, visible: visible, views: map[players.ID]*view{}}
}

func (p *Projector) Components() *Components { return p.comps }

// EntireState lists every entity. With a player it filters by visibility, reports
// NoChange for everything and resets that player's baseline, so the next diff is
// relative to this call.
func (p *Projector) EntireState(w *world.World, player *players.ID) ([]Event, error) {
	var v *view
	if player != nil {
		v = &view{cursor: w.Tracker().Seq(), known: map[world.EntityKey]uint64{}}
	}
	var out []Event
	for _, key := range allKeys(w) {
		if player != nil && !p.canSee(w, *player, key) {
			continue
		}
		comps, ok, err := p.encode(w, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Event{Kind: NoChange, Entity: key, Components: comps})
		if v != nil {
			v.known[key] = digest(comps)
		}
	}
	if v != nil {
		p.views[*player] = v
	}
	return out, nil
}

// StateDiff reports what changed for player since its last projection. A player
// with no baseline receives every visible entity as spawned.
func (p *Projector) StateDiff(w *world.World, player players.ID) ([]Event, error) {
	v, ok := p.views[player]
	if !ok {
		v = &view{known: map[world.EntityKey]uint64{}}
		out, err := p.spawnAll(w, player, v)
		if err != nil {
			return nil, err
		}
		p.views[player] = v
		return out, nil
	}

	var out []Event
	for _, key := range w.Tracker().ChangedSince(v.cursor) {
		comps, exists, err := p.encode(w, key)
		if err != nil {
			return nil, err
		}
		_, known := v.known[key]
		if exists && !p.canSee(w, player, key) {
			exists = false
		}
		switch {
		case exists && !known:
			out = append(out, Event{Kind: Spawned, Entity: key, Components: comps})
			v.known[key] = digest(comps)
		case exists && known:
			d := digest(comps)
			if d == v.known[key] {
				continue
			}
			out = append(out, Event{Kind: Modified, Entity: key, Components: comps})
			v.known[key] = d
		case !exists && known:
			out = append(out, Event{Kind: Despawned, Entity: key})
			delete(v.known, key)
		}
	}
	v.cursor = w.Tracker().Seq()
	return out, nil
}

func (p *Projector) spawnAll(w *world.World, player players.ID, v *view) ([]Event, error) {
	v.cursor = w.Tracker().Seq()
	var out []Event
	for _, key := range allKeys(w) {
		if !p.canSee(w, player, key) {
			continue
		}
		comps, ok, err := p.encode(w, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Event{Kind: Spawned, Entity: key, Components: comps})
		v.known[key] = digest(comps)
	}
	return out, nil
}

// Forget drops a player's baseline.
func (p *Projector) Forget(player players.ID) { delete(p.views, player) }

// Compact drops change markers every consumer has read. Nothing is compacted while
// any consumer has no baseline yet.
func (p *Projector) Compact(w *world.World, consumers []players.ID) {
	if len(consumers) == 0 {
		return
	}
	var low uint64
	for i, id := range consumers {
		v, ok := p.views[id]
		if !ok {
			return
		}
		if i == 0 || v.cursor < low {
			low = v.cursor
		}
	}
	w.Tracker().Compact(low)
}

func (p *Projector) canSee(w *world.World, player players.ID, key world.EntityKey) bool {
	return p.visible == nil || p.visible(w, player, key)
}

// encode serializes the entity behind key. It reports false when the entity no
// longer exists or is an untracked resource.
func (p *Projector) encode(w *world.World, key world.EntityKey) ([]ComponentData, bool, error) {
	var (
		comps []ComponentData
		err   error
	)
	switch key.Kind {
	case world.KindTile:
		m, ok := w.Map(key.Map)
		if !ok {
			return nil, false, nil
		}
		t, ok := m.Tile(key.Tile)
		if !ok {
			return nil, false, nil
		}
		comps, err = p.comps.Tiles.Encode(TileView{Map: m, Tile: t})
	case world.KindObject:
		o, ok := w.Object(key.Object)
		if !ok {
			return nil, false, nil
		}
		comps, err = p.comps.Objects.Encode(o)
	case world.KindResource:
		if _, tracked := p.comps.Resources.ByName(key.Resource); !tracked {
			return nil, false, nil
		}
		raw, ok := w.Resource(key.Resource)
		if !ok {
			return nil, false, nil
		}
		comps, err = p.comps.Resources.Encode(ResourceView{Name: key.Resource, Data: raw})
	case world.KindPlayer:
		pl, ok := w.Players().Get(key.Player)
		if !ok {
			return nil, false, nil
		}
		comps, err = p.comps.Players.Encode(pl)
	default:
		return nil, false, fmt.Errorf("unknown entity kind %s", key.Kind)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}
	return comps, true, nil
}

func allKeys(w *world.World) []world.EntityKey {
	var out []world.EntityKey
	for _, id := range w.MapIDs() {
		m, _ := w.Map(id)
		for _, t := range m.Tiles() {
			out = append(out, world.TileKey(id, t.Pos))
		}
	}
	for _, id := range w.ObjectIDs() {
		out = append(out, world.ObjectKey(id))
	}
	for _, name := range w.ResourceNames() {
		out = append(out, world.ResourceKey(name))
	}
	for _, pl := range w.Players().All() {
		out = append(out, world.PlayerKey(pl.ID))
	}
	return out
}

func digest(comps []ComponentData) uint64 {
	h := xxhash.New()
	var buf [5]byte
	for _, c := range comps {
		buf[0] = byte(c.ID)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(c.Data)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write(c.Data)
	}
	return h.Sum64()
}
