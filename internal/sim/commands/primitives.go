package commands

import (
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/world"
)

const (
	KindAddObjectToTile      = "add_object_to_tile"
	KindRemoveObjectFromTile = "remove_object_from_tile"
	KindSpawnObject          = "spawn_object"
	KindDespawnObject        = "despawn_object"
)

func init() {
	Register(KindAddObjectToTile, func() Command { return &AddObjectToTile{} })
	Register(KindRemoveObjectFromTile, func() Command { return &RemoveObjectFromTile{} })
	Register(KindSpawnObject, func() Command { return &SpawnObject{} })
	Register(KindDespawnObject, func() Command { return &DespawnObject{} })
}

// AddObjectToTile places an off-map object on a tile.
type AddObjectToTile struct {
	Object ids.ObjectID    `json:"object"`
	Map    ids.MapID       `json:"map"`
	Pos    mapping.TilePos `json:"pos"`

	Prior          objects.Position `json:"prior"`
	PriorTransform mapping.Vec2     `json:"prior_transform"`
}

func (c *AddObjectToTile) Kind() string { return KindAddObjectToTile }

func (c *AddObjectToTile) Execute(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return MissingEntity("object %s", c.Object)
	}
	m, ok := w.Map(c.Map)
	if !ok {
		return MissingEntity("map %s", c.Map)
	}
	t, ok := m.Tile(c.Pos)
	if !ok {
		return Constraint("position %s out of range on %s", c.Pos, c.Map)
	}
	if o.Position.Placed {
		return Constraint("object %s already on %s%s", c.Object, o.Position.Map, o.Position.Tile)
	}
	if !t.HasSpace(o.Stacking) {
		return Constraint("tile %s%s has no space for class %q", c.Map, c.Pos, o.Stacking)
	}
	if !t.Admit(o.ID, o.Stacking) {
		return Constraint("tile %s%s rejected object %s", c.Map, c.Pos, c.Object)
	}
	c.Prior = o.Position
	c.PriorTransform = o.Transform
	o.Position = objects.Position{Map: c.Map, Tile: c.Pos, Placed: true}
	o.Transform = m.TileToWorld(c.Pos)
	w.MarkTileChanged(c.Map, c.Pos)
	w.MarkObjectChanged(c.Object)
	return nil
}

func (c *AddObjectToTile) Rollback(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return Irreversible("object %s vanished", c.Object)
	}
	t, ok := w.Tile(c.Map, c.Pos)
	if !ok {
		return Irreversible("tile %s%s vanished", c.Map, c.Pos)
	}
	if !t.Evict(o.ID, o.Stacking) {
		return Irreversible("object %s not on tile %s%s", c.Object, c.Map, c.Pos)
	}
	o.Position = c.Prior
	o.Transform = c.PriorTransform
	w.MarkTileChanged(c.Map, c.Pos)
	w.MarkObjectChanged(c.Object)
	return nil
}

// RemoveObjectFromTile takes an object off its tile, leaving it off-map.
type RemoveObjectFromTile struct {
	Object ids.ObjectID    `json:"object"`
	Map    ids.MapID       `json:"map"`
	Pos    mapping.TilePos `json:"pos"`
}

func (c *RemoveObjectFromTile) Kind() string { return KindRemoveObjectFromTile }

func (c *RemoveObjectFromTile) Execute(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return MissingEntity("object %s", c.Object)
	}
	if _, ok := w.Map(c.Map); !ok {
		return MissingEntity("map %s", c.Map)
	}
	t, ok := w.Tile(c.Map, c.Pos)
	if !ok {
		return Constraint("position %s out of range on %s", c.Pos, c.Map)
	}
	if !t.Contains(o.ID) {
		return Constraint("object %s not on tile %s%s", c.Object, c.Map, c.Pos)
	}
	if !t.Evict(o.ID, o.Stacking) {
		return Constraint("tile %s%s ledger has no %q entry for object %s", c.Map, c.Pos, o.Stacking, c.Object)
	}
	o.Position = objects.Position{}
	w.MarkTileChanged(c.Map, c.Pos)
	w.MarkObjectChanged(c.Object)
	return nil
}

func (c *RemoveObjectFromTile) Rollback(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return Irreversible("object %s vanished", c.Object)
	}
	t, ok := w.Tile(c.Map, c.Pos)
	if !ok {
		return Irreversible("tile %s%s vanished", c.Map, c.Pos)
	}
	if !t.Admit(o.ID, o.Stacking) {
		return Irreversible("tile %s%s cannot take object %s back", c.Map, c.Pos, c.Object)
	}
	o.Position = objects.Position{Map: c.Map, Tile: c.Pos, Placed: true}
	w.MarkTileChanged(c.Map, c.Pos)
	w.MarkObjectChanged(c.Object)
	return nil
}

// SpawnObject allocates an id, inserts a copy of Object and places it on a tile.
// When placement fails nothing is left behind, including the id.
type SpawnObject struct {
	Object objects.Object  `json:"object"`
	Map    ids.MapID       `json:"map"`
	Pos    mapping.TilePos `json:"pos"`

	SpawnedID ids.ObjectID     `json:"spawned_id,omitempty"`
	Place     *AddObjectToTile `json:"place,omitempty"`
}

func (c *SpawnObject) Kind() string { return KindSpawnObject }

func (c *SpawnObject) Execute(w *world.World) error {
	id := w.IDs.NextObjectID()
	o := c.Object.Clone()
	o.ID = id
	o.Position = objects.Position{}
	if err := w.InsertObject(o); err != nil {
		w.IDs.ReleaseLastObjectID()
		return Constraint("insert object %s: %v", id, err)
	}
	place := &AddObjectToTile{Object: id, Map: c.Map, Pos: c.Pos}
	if err := place.Execute(w); err != nil {
		_, _ = w.DeleteObject(id)
		w.IDs.ReleaseLastObjectID()
		return err
	}
	c.SpawnedID = id
	c.Place = place
	return nil
}

func (c *SpawnObject) Rollback(w *world.World) error {
	if c.Place == nil || c.SpawnedID == 0 {
		return Irreversible("spawn was never executed")
	}
	if err := c.Place.Rollback(w); err != nil {
		return err
	}
	if _, err := w.DeleteObject(c.SpawnedID); err != nil {
		return Irreversible("%v", err)
	}
	if ids.ObjectID(w.IDs.Objects.Last()) == c.SpawnedID {
		w.IDs.ReleaseLastObjectID()
	}
	return nil
}

// DespawnObject removes an object from the world, keeping a full copy so the
// rollback can reinstate it at its last position.
type DespawnObject struct {
	Object ids.ObjectID `json:"object"`

	Snapshot *objects.Object `json:"snapshot,omitempty"`
}

func (c *DespawnObject) Kind() string { return KindDespawnObject }

func (c *DespawnObject) Execute(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return MissingEntity("object %s", c.Object)
	}
	snap := o.Clone()
	if o.Position.Placed {
		remove := &RemoveObjectFromTile{Object: o.ID, Map: o.Position.Map, Pos: o.Position.Tile}
		if err := remove.Execute(w); err != nil {
			return err
		}
	}
	if _, err := w.DeleteObject(c.Object); err != nil {
		return MissingEntity("%v", err)
	}
	c.Snapshot = snap
	return nil
}

func (c *DespawnObject) Rollback(w *world.World) error {
	if c.Snapshot == nil {
		return Irreversible("despawn of %s has no snapshot", c.Object)
	}
	o := c.Snapshot.Clone()
	last := o.Position
	o.Position = objects.Position{}
	if err := w.InsertObject(o); err != nil {
		return Irreversible("%v", err)
	}
	if last.Placed {
		t, ok := w.Tile(last.Map, last.Tile)
		if !ok || !t.Admit(o.ID, o.Stacking) {
			_, _ = w.DeleteObject(o.ID)
			return Irreversible("tile %s%s cannot take object %s back", last.Map, last.Tile, o.ID)
		}
		o.Position = last
		w.MarkTileChanged(last.Map, last.Tile)
	}
	return nil
}
