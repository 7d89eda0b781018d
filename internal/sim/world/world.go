package world

import (
	"encoding/json"
	"fmt"
	"sort"

	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
)

// World holds the state of one game instance: maps, objects, resources and the
// id service. It is not safe for concurrent use; the game runtime owns it.
type World struct {
	IDs ids.Service

	maps      map[ids.MapID]*mapping.Map
	objects   map[ids.ObjectID]*objects.Object
	resources map[string]json.RawMessage
	roster    *players.Roster

	tracker *Tracker
	tick    uint64
}

func New() *World {
	return &World{
		maps:      map[ids.MapID]*mapping.Map{},
		objects:   map[ids.ObjectID]*objects.Object{},
		resources: map[string]json.RawMessage{},
		roster:    &players.Roster{},
		tracker:   NewTracker(),
	}
}

func (w *World) Tracker() *Tracker { return w.tracker }

func (w *World) CurrentTick() uint64 { return w.tick }

func (w *World) AdvanceTick() uint64 {
	w.tick++
	return w.tick
}

// Map returns the map with the given id.
func (w *World) Map(id ids.MapID) (*mapping.Map, bool) {
	m, ok := w.maps[id]
	return m, ok
}

// Tile looks up a tile by map id and position.
func (w *World) Tile(id ids.MapID, pos mapping.TilePos) (*mapping.Tile, bool) {
	m, ok := w.maps[id]
	if !ok {
		return nil, false
	}
	return m.Tile(pos)
}

func (w *World) InsertMap(m *mapping.Map) error {
	if m == nil || m.ID == 0 {
		return fmt.Errorf("invalid map")
	}
	if _, ok := w.maps[m.ID]; ok {
		return fmt.Errorf("map %s already exists", m.ID)
	}
	w.maps[m.ID] = m
	for _, t := range m.Tiles() {
		w.tracker.Spawned(TileKey(m.ID, t.Pos))
	}
	return nil
}

func (w *World) RemoveMap(id ids.MapID) (*mapping.Map, error) {
	m, ok := w.maps[id]
	if !ok {
		return nil, fmt.Errorf("map %s not found", id)
	}
	delete(w.maps, id)
	for _, t := range m.Tiles() {
		w.tracker.Despawned(TileKey(m.ID, t.Pos))
	}
	return m, nil
}

func (w *World) MapIDs() []ids.MapID {
	out := make([]ids.MapID, 0, len(w.maps))
	for id := range w.maps {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) Object(id ids.ObjectID) (*objects.Object, bool) {
	o, ok := w.objects[id]
	return o, ok
}

func (w *World) InsertObject(o *objects.Object) error {
	if o == nil || o.ID == 0 {
		return fmt.Errorf("invalid object")
	}
	if _, ok := w.objects[o.ID]; ok {
		return fmt.Errorf("object %s already exists", o.ID)
	}
	w.objects[o.ID] = o
	w.tracker.Spawned(ObjectKey(o.ID))
	return nil
}

func (w *World) DeleteObject(id ids.ObjectID) (*objects.Object, error) {
	o, ok := w.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %s not found", id)
	}
	delete(w.objects, id)
	w.tracker.Despawned(ObjectKey(id))
	return o, nil
}

// UpdateObject runs fn on the object and marks it changed when fn succeeds.
func (w *World) UpdateObject(id ids.ObjectID, fn func(*objects.Object) error) error {
	o, ok := w.objects[id]
	if !ok {
		return fmt.Errorf("object %s not found", id)
	}
	if err := fn(o); err != nil {
		return err
	}
	w.tracker.Modified(ObjectKey(id))
	return nil
}

func (w *World) MarkObjectChanged(id ids.ObjectID) {
	if _, ok := w.objects[id]; ok {
		w.tracker.Modified(ObjectKey(id))
	}
}

func (w *World) MarkTileChanged(id ids.MapID, pos mapping.TilePos) {
	if _, ok := w.Tile(id, pos); ok {
		w.tracker.Modified(TileKey(id, pos))
	}
}

func (w *World) ObjectIDs() []ids.ObjectID {
	out := make([]ids.ObjectID, 0, len(w.objects))
	for id := range w.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) ObjectCount() int { return len(w.objects) }

// Resource returns the raw encoding of a named resource.
func (w *World) Resource(name string) (json.RawMessage, bool) {
	b, ok := w.resources[name]
	return b, ok
}

func (w *World) SetResource(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("resource %s: %w", name, err)
	}
	_, existed := w.resources[name]
	w.resources[name] = b
	if existed {
		w.tracker.Modified(ResourceKey(name))
	} else {
		w.tracker.Spawned(ResourceKey(name))
	}
	return nil
}

func (w *World) RemoveResource(name string) {
	if _, ok := w.resources[name]; !ok {
		return
	}
	delete(w.resources, name)
	w.tracker.Despawned(ResourceKey(name))
}

func (w *World) ResourceNames() []string {
	out := make([]string, 0, len(w.resources))
	for k := range w.resources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GetResource decodes a resource into T.
func GetResource[T any](w *World, name string) (T, bool) {
	var v T
	raw, ok := w.resources[name]
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func (w *World) Players() *players.Roster { return w.roster }

func (w *World) AddPlayer(p players.Player) error {
	if err := w.roster.Add(p); err != nil {
		return err
	}
	w.tracker.Spawned(PlayerKey(p.ID))
	return nil
}
