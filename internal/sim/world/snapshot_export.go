package world

import (
	"encoding/json"
	"fmt"

	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
)

func (w *World) ExportSnapshot(gameID string) (snapshot.SnapshotV1, error) {
	c := w.IDs.Counters()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			GameID:  gameID,
			Tick:    w.tick,
			Digest:  w.Digest(),
		},
		Counters: snapshot.CountersV1{LastObject: c.LastObject, LastMap: c.LastMap},
	}
	for _, id := range w.MapIDs() {
		snap.Maps = append(snap.Maps, exportMap(w.maps[id]))
	}
	for _, id := range w.ObjectIDs() {
		b, err := json.Marshal(w.objects[id])
		if err != nil {
			return snap, fmt.Errorf("object %s: %w", id, err)
		}
		snap.Objects = append(snap.Objects, snapshot.ObjectV1{ID: uint64(id), JSON: b})
	}
	for _, name := range w.ResourceNames() {
		snap.Resources = append(snap.Resources, snapshot.ResourceV1{Name: name, JSON: append([]byte(nil), w.resources[name]...)})
	}
	for _, p := range w.roster.All() {
		snap.Players = append(snap.Players, snapshot.PlayerV1{ID: uint32(p.ID), NeedsState: p.NeedsState})
	}
	return snap, nil
}

func exportMap(m *mapping.Map) snapshot.MapV1 {
	out := snapshot.MapV1{
		ID:       uint64(m.ID),
		Width:    m.Width,
		Height:   m.Height,
		Topology: uint8(m.Topology),
		GridSize: [2]float64{m.GridSize.X, m.GridSize.Y},
		Origin:   [2]float64{m.Origin.X, m.Origin.Y},
		Tiles:    make([]snapshot.TileV1, 0, len(m.Tiles())),
	}
	for _, t := range m.Tiles() {
		tv := snapshot.TileV1{
			X:            t.Pos.X,
			Y:            t.Pos.Y,
			Terrain:      t.Terrain.Name,
			TerrainClass: string(t.Terrain.Class),
		}
		if len(t.Costs) > 0 {
			tv.Costs = make(map[string]uint32, len(t.Costs))
			for k, v := range t.Costs {
				tv.Costs[string(k)] = v
			}
		}
		for _, class := range t.Stacking.Classes() {
			e := t.Stacking[class]
			tv.Stacking = append(tv.Stacking, snapshot.StackV1{Class: string(class), Current: e.Current, Max: e.Max})
		}
		for _, o := range t.Occupants {
			tv.Occupants = append(tv.Occupants, uint64(o))
		}
		out.Tiles = append(out.Tiles, tv)
	}
	return out
}

// ImportSnapshot replaces the world state with the snapshot contents. The change
// tracker starts fresh: every imported entity is reported as spawned.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	fresh := New()
	fresh.tick = snap.Header.Tick
	fresh.IDs.SetCounters(ids.Counters{LastObject: snap.Counters.LastObject, LastMap: snap.Counters.LastMap})

	for _, mv := range snap.Maps {
		m, err := importMap(mv)
		if err != nil {
			return err
		}
		if err := fresh.InsertMap(m); err != nil {
			return err
		}
	}
	for _, ov := range snap.Objects {
		var o objects.Object
		if err := json.Unmarshal(ov.JSON, &o); err != nil {
			return fmt.Errorf("object %d: %w", ov.ID, err)
		}
		if err := fresh.InsertObject(&o); err != nil {
			return err
		}
	}
	for _, rv := range snap.Resources {
		fresh.resources[rv.Name] = append(json.RawMessage(nil), rv.JSON...)
		fresh.tracker.Spawned(ResourceKey(rv.Name))
	}
	for _, pv := range snap.Players {
		if err := fresh.AddPlayer(players.Player{ID: players.ID(pv.ID), NeedsState: pv.NeedsState}); err != nil {
			return err
		}
	}
	if err := fresh.CheckInvariants(); err != nil {
		return fmt.Errorf("snapshot inconsistent: %w", err)
	}
	if snap.Header.Digest != "" && fresh.Digest() != snap.Header.Digest {
		return fmt.Errorf("snapshot digest mismatch")
	}
	*w = *fresh
	return nil
}

func importMap(mv snapshot.MapV1) (*mapping.Map, error) {
	tiles := make([]*mapping.Tile, 0, len(mv.Tiles))
	for _, tv := range mv.Tiles {
		t := &mapping.Tile{
			Pos:      mapping.TilePos{X: tv.X, Y: tv.Y},
			Terrain:  mapping.TerrainType{Name: tv.Terrain, Class: mapping.TerrainClass(tv.TerrainClass)},
			Stacking: mapping.StackingLedger{},
		}
		if len(tv.Costs) > 0 {
			t.Costs = make(mapping.CostTable, len(tv.Costs))
			for k, v := range tv.Costs {
				t.Costs[mapping.MovementClass(k)] = v
			}
		}
		for _, s := range tv.Stacking {
			t.Stacking[mapping.StackingClass(s.Class)] = mapping.StackEntry{Current: s.Current, Max: s.Max}
		}
		for _, o := range tv.Occupants {
			t.Occupants = append(t.Occupants, ids.ObjectID(o))
		}
		tiles = append(tiles, t)
	}
	return mapping.FromTiles(ids.MapID(mv.ID), mv.Width, mv.Height, mapping.Topology(mv.Topology),
		mapping.Vec2{X: mv.GridSize[0], Y: mv.GridSize[1]},
		mapping.Vec2{X: mv.Origin[0], Y: mv.Origin[1]}, tiles)
}
