package objects

import "gridtactics.dev/internal/sim/mapping"

// MovementProfile describes how an object moves. An empty TerrainClasses list
// admits every terrain class.
type MovementProfile struct {
	Points               uint32                 `json:"points" yaml:"points"`
	Class                mapping.MovementClass  `json:"class" yaml:"class"`
	TerrainClasses       []mapping.TerrainClass `json:"terrain_classes,omitempty" yaml:"terrain_classes"`
	TerrainTypeOverrides map[string]bool        `json:"terrain_type_overrides,omitempty" yaml:"terrain_type_overrides"`
}

// Admits reports whether the mover may enter terrain. A per-type override wins
// over the class admit list.
func (m MovementProfile) Admits(terrain mapping.TerrainType) bool {
	if allowed, ok := m.TerrainTypeOverrides[terrain.Name]; ok {
		return allowed
	}
	if len(m.TerrainClasses) == 0 {
		return true
	}
	for _, c := range m.TerrainClasses {
		if c == terrain.Class {
			return true
		}
	}
	return false
}

func (m MovementProfile) Clone() MovementProfile {
	out := m
	if m.TerrainClasses != nil {
		out.TerrainClasses = append([]mapping.TerrainClass(nil), m.TerrainClasses...)
	}
	if m.TerrainTypeOverrides != nil {
		out.TerrainTypeOverrides = make(map[string]bool, len(m.TerrainTypeOverrides))
		for k, v := range m.TerrainTypeOverrides {
			out.TerrainTypeOverrides[k] = v
		}
	}
	return out
}

// TypeRules decide whether a mover may share a tile with an occupant of a given
// type. Rules are consulted type first, then group, then class; no rule allows.
type TypeRules struct {
	Types   map[string]bool `json:"types,omitempty" yaml:"types"`
	Groups  map[string]bool `json:"groups,omitempty" yaml:"groups"`
	Classes map[string]bool `json:"classes,omitempty" yaml:"classes"`
}

func (r TypeRules) Allows(t Type) bool {
	if v, ok := r.Types[t.Name]; ok {
		return v
	}
	if v, ok := r.Groups[t.Group]; ok {
		return v
	}
	if v, ok := r.Classes[t.Class]; ok {
		return v
	}
	return true
}

func (r TypeRules) Empty() bool {
	return len(r.Types) == 0 && len(r.Groups) == 0 && len(r.Classes) == 0
}

func (r TypeRules) Clone() TypeRules {
	return TypeRules{Types: cloneBoolMap(r.Types), Groups: cloneBoolMap(r.Groups), Classes: cloneBoolMap(r.Classes)}
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
