package state

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ComponentID is the stable wire id of a component. Games assign ids by hand and
// must keep them fixed across versions for save compatibility.
type ComponentID uint8

// ComponentData is one serialized component of an entity.
type ComponentData struct {
	ID   ComponentID     `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Component knows how to serialize one aspect of an entity of type E. Encode
// reports false when the entity does not carry the component.
type Component[E any] struct {
	ID     ComponentID
	Name   string
	Encode func(e E) ([]byte, bool, error)
	Decode func(b []byte) (any, error)
}

// Registry holds the components tracked for one entity kind, ordered by id.
type Registry[E any] struct {
	comps []Component[E]
}

func (r *Registry[E]) Register(c Component[E]) error {
	if c.Encode == nil {
		return fmt.Errorf("component %d (%s): nil encoder", c.ID, c.Name)
	}
	for _, have := range r.comps {
		if have.ID == c.ID {
			return fmt.Errorf("component id %d already registered as %s", c.ID, have.Name)
		}
		if have.Name == c.Name {
			return fmt.Errorf("component %s already registered with id %d", c.Name, have.ID)
		}
	}
	r.comps = append(r.comps, c)
	sort.Slice(r.comps, func(i, j int) bool { return r.comps[i].ID < r.comps[j].ID })
	return nil
}

func (r *Registry[E]) Lookup(id ComponentID) (Component[E], bool) {
	for _, c := range r.comps {
		if c.ID == id {
			return c, true
		}
	}
	return Component[E]{}, false
}

func (r *Registry[E]) ByName(name string) (Component[E], bool) {
	for _, c := range r.comps {
		if c.Name == name {
			return c, true
		}
	}
	return Component[E]{}, false
}

func (r *Registry[E]) Len() int { return len(r.comps) }

// Encode serializes every registered component the entity carries, in id order.
func (r *Registry[E]) Encode(e E) ([]ComponentData, error) {
	var out []ComponentData
	for _, c := range r.comps {
		b, ok, err := c.Encode(e)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.Name, err)
		}
		if !ok {
			continue
		}
		out = append(out, ComponentData{ID: c.ID, Data: b})
	}
	return out, nil
}

// Decode turns wire data back into the component's value.
func (r *Registry[E]) Decode(d ComponentData) (any, error) {
	c, ok := r.Lookup(d.ID)
	if !ok {
		return nil, fmt.Errorf("unknown component id %d", d.ID)
	}
	if c.Decode == nil {
		return nil, fmt.Errorf("component %s has no decoder", c.Name)
	}
	return c.Decode(d.Data)
}

// JSONComponent builds a component whose value is extracted by get and carried as JSON.
func JSONComponent[E, T any](id ComponentID, name string, get func(e E) (T, bool)) Component[E] {
	return Component[E]{
		ID:   id,
		Name: name,
		Encode: func(e E) ([]byte, bool, error) {
			v, ok := get(e)
			if !ok {
				return nil, false, nil
			}
			b, err := json.Marshal(v)
			return b, err == nil, err
		},
		Decode: decodeJSON[T],
	}
}

func decodeJSON[T any](b []byte) (any, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeAs decodes component data straight into T.
func DecodeAs[T any](d ComponentData) (T, error) {
	var v T
	err := json.Unmarshal(d.Data, &v)
	return v, err
}
