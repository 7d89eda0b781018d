package objects

import (
	"encoding/json"
	"sort"

	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/players"
)

// Type is a unit or building kind. Group and Class form the capability hierarchy
// type -> group -> class used by movement rules.
type Type struct {
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group" yaml:"group"`
	Class string `json:"class" yaml:"class"`
}

// Position is the tile an object occupies. Placed is false while the object is off-map.
type Position struct {
	Map    ids.MapID       `json:"map"`
	Tile   mapping.TilePos `json:"tile"`
	Placed bool            `json:"placed"`
}

// Object is a unit or building. Game-defined components live in Components as JSON.
type Object struct {
	ID        ids.ObjectID          `json:"id"`
	Owner     *players.Marker       `json:"owner,omitempty"`
	Type      Type                  `json:"type"`
	Stacking  mapping.StackingClass `json:"stacking"`
	Position  Position              `json:"position"`
	Transform mapping.Vec2          `json:"transform"`
	Movement  MovementProfile       `json:"movement"`
	TypeRules TypeRules             `json:"type_rules,omitempty"`

	Components map[string]json.RawMessage `json:"components,omitempty"`
}

func (o *Object) OwnedBy(p players.ID) bool {
	return o.Owner != nil && o.Owner.Player == p
}

func (o *Object) Clone() *Object {
	out := *o
	if o.Owner != nil {
		m := *o.Owner
		out.Owner = &m
	}
	out.Movement = o.Movement.Clone()
	out.TypeRules = o.TypeRules.Clone()
	if o.Components != nil {
		out.Components = make(map[string]json.RawMessage, len(o.Components))
		for k, v := range o.Components {
			out.Components[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

func (o *Object) HasComponent(name string) bool {
	_, ok := o.Components[name]
	return ok
}

func (o *Object) RemoveComponent(name string) {
	delete(o.Components, name)
}

// ComponentNames returns the names of the attached game components in sorted order.
func (o *Object) ComponentNames() []string {
	out := make([]string, 0, len(o.Components))
	for k := range o.Components {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GetComponent decodes the named component. It reports false when the component is
// missing or does not decode into T.
func GetComponent[T any](o *Object, name string) (T, bool) {
	var v T
	raw, ok := o.Components[name]
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func SetComponent[T any](o *Object, name string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if o.Components == nil {
		o.Components = map[string]json.RawMessage{}
	}
	o.Components[name] = b
	return nil
}
