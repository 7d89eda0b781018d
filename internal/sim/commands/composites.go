package commands

import (
	"encoding/json"
	"fmt"

	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/world"
)

const (
	KindMoveObject  = "move_object"
	KindStepObject  = "step_object"
	KindGenerateMap = "generate_map"
	KindSequence    = "sequence"
)

func init() {
	Register(KindMoveObject, func() Command { return &MoveObject{} })
	Register(KindStepObject, func() Command { return &StepObject{} })
	Register(KindGenerateMap, func() Command { return &GenerateMap{} })
	Register(KindSequence, func() Command { return &Sequence{} })
}

// executeAll runs steps in order. On failure the executed prefix is rolled back
// and the original error returned.
func executeAll(w *world.World, steps []Command) error {
	for i, s := range steps {
		if err := s.Execute(w); err != nil {
			if rerr := rollbackAll(w, steps[:i]); rerr != nil {
				return rerr
			}
			return err
		}
	}
	return nil
}

func rollbackAll(w *world.World, steps []Command) error {
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].Rollback(w); err != nil {
			return err
		}
	}
	return nil
}

// MoveObject relocates a placed object between tiles of one map. Path and Cost
// describe the route the mover took and are carried for animation and replay.
type MoveObject struct {
	Object ids.ObjectID      `json:"object"`
	Map    ids.MapID         `json:"map"`
	From   mapping.TilePos   `json:"from"`
	To     mapping.TilePos   `json:"to"`
	Path   []mapping.TilePos `json:"path,omitempty"`
	Cost   uint32            `json:"cost"`

	Remove *RemoveObjectFromTile `json:"remove,omitempty"`
	Place  *AddObjectToTile      `json:"place,omitempty"`
}

func (c *MoveObject) Kind() string { return KindMoveObject }

func (c *MoveObject) Execute(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return MissingEntity("object %s", c.Object)
	}
	if !o.Position.Placed || o.Position.Map != c.Map || o.Position.Tile != c.From {
		return Constraint("object %s is not at %s%s", c.Object, c.Map, c.From)
	}
	remove := &RemoveObjectFromTile{Object: c.Object, Map: c.Map, Pos: c.From}
	place := &AddObjectToTile{Object: c.Object, Map: c.Map, Pos: c.To}
	if err := executeAll(w, []Command{remove, place}); err != nil {
		return err
	}
	c.Remove, c.Place = remove, place
	return nil
}

func (c *MoveObject) Rollback(w *world.World) error {
	if c.Remove == nil || c.Place == nil {
		return Irreversible("move of %s was never executed", c.Object)
	}
	return rollbackAll(w, []Command{c.Remove, c.Place})
}

type Direction string

const (
	North     Direction = "north"
	East      Direction = "east"
	South     Direction = "south"
	West      Direction = "west"
	NorthEast Direction = "northeast"
	SouthEast Direction = "southeast"
	SouthWest Direction = "southwest"
	NorthWest Direction = "northwest"
)

// Delta returns the grid offset of d. North is +Y.
func (d Direction) Delta() (dx, dy int, ok bool) {
	switch d {
	case North:
		return 0, 1, true
	case East:
		return 1, 0, true
	case South:
		return 0, -1, true
	case West:
		return -1, 0, true
	case NorthEast:
		return 1, 1, true
	case SouthEast:
		return 1, -1, true
	case SouthWest:
		return -1, -1, true
	case NorthWest:
		return -1, 1, true
	default:
		return 0, 0, false
	}
}

// StepObject moves an object one tile in a direction relative to wherever it is
// when the command executes.
type StepObject struct {
	Object    ids.ObjectID `json:"object"`
	Direction Direction    `json:"direction"`

	Move *MoveObject `json:"move,omitempty"`
}

func (c *StepObject) Kind() string { return KindStepObject }

func (c *StepObject) Execute(w *world.World) error {
	dx, dy, ok := c.Direction.Delta()
	if !ok {
		return Constraint("unknown direction %q", c.Direction)
	}
	o, ok := w.Object(c.Object)
	if !ok {
		return MissingEntity("object %s", c.Object)
	}
	if !o.Position.Placed {
		return Constraint("object %s is not on a map", c.Object)
	}
	from := o.Position.Tile
	to := from.Add(dx, dy)
	t, ok := w.Tile(o.Position.Map, to)
	if !ok {
		return Constraint("position %s out of range on %s", to, o.Position.Map)
	}
	move := &MoveObject{
		Object: c.Object,
		Map:    o.Position.Map,
		From:   from,
		To:     to,
		Path:   []mapping.TilePos{from, to},
		Cost:   t.Costs.Cost(o.Movement.Class),
	}
	if err := move.Execute(w); err != nil {
		return err
	}
	c.Move = move
	return nil
}

func (c *StepObject) Rollback(w *world.World) error {
	if c.Move == nil {
		return Irreversible("step of %s was never executed", c.Object)
	}
	return c.Move.Rollback(w)
}

// GenerateMap creates a map with randomized terrain. The seed makes re-execution
// reproduce the same terrain.
type GenerateMap struct {
	Params mapping.GenerateParams `json:"params"`
	Seed   int64                  `json:"seed"`

	MapID ids.MapID `json:"map_id,omitempty"`
}

func (c *GenerateMap) Kind() string { return KindGenerateMap }

func (c *GenerateMap) Execute(w *world.World) error {
	id := w.IDs.NextMapID()
	m, err := mapping.Generate(id, c.Params, c.Seed)
	if err != nil {
		w.IDs.ReleaseLastMapID()
		return Constraint("generate map: %v", err)
	}
	if err := w.InsertMap(m); err != nil {
		w.IDs.ReleaseLastMapID()
		return Constraint("insert map: %v", err)
	}
	c.MapID = id
	return nil
}

func (c *GenerateMap) Rollback(w *world.World) error {
	m, ok := w.Map(c.MapID)
	if !ok {
		return Irreversible("map %s vanished", c.MapID)
	}
	if m.Occupied() {
		return Irreversible("map %s still has occupants", c.MapID)
	}
	if _, err := w.RemoveMap(c.MapID); err != nil {
		return Irreversible("%v", err)
	}
	if ids.MapID(w.IDs.Maps.Last()) == c.MapID {
		w.IDs.ReleaseLastMapID()
	}
	return nil
}

// Sequence executes its steps in order as one record and rolls them back in reverse.
type Sequence struct {
	Steps []Command
}

func (c *Sequence) Kind() string { return KindSequence }

func (c *Sequence) Execute(w *world.World) error {
	if len(c.Steps) == 0 {
		return Constraint("empty sequence")
	}
	return executeAll(w, c.Steps)
}

func (c *Sequence) Rollback(w *world.World) error {
	return rollbackAll(w, c.Steps)
}

func (c *Sequence) MarshalJSON() ([]byte, error) {
	steps, err := encodeSteps(c.Steps)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Steps []step `json:"steps"`
	}{steps})
}

func (c *Sequence) UnmarshalJSON(b []byte) error {
	var raw struct {
		Steps []step `json:"steps"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	steps, err := decodeSteps(raw.Steps)
	if err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	c.Steps = steps
	return nil
}
