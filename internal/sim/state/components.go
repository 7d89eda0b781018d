package state

import (
	"encoding/json"
	"fmt"

	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
)

// TileView is what a tile component sees.
type TileView struct {
	Map  *mapping.Map
	Tile *mapping.Tile
}

// ResourceView is a named world resource in its stored encoding.
type ResourceView struct {
	Name string
	Data json.RawMessage
}

// Components is the full reflection table of a game.
type Components struct {
	Tiles     Registry[TileView]
	Objects   Registry[*objects.Object]
	Resources Registry[ResourceView]
	Players   Registry[players.Player]
}

const (
	IDTilePos ComponentID = iota
	IDTile
	IDTerrainInfo
	IDTileObjects
	IDObjectID
	IDGridPosition
	IDObjectType
	IDObjectStacking
	IDObjectMovement
	IDPlayerMarker
	IDPlayer
)

type TileInfo struct {
	Map ids.MapID `json:"map"`
}

type TerrainInfo struct {
	Terrain mapping.TerrainType `json:"terrain"`
	Costs   mapping.CostTable   `json:"costs,omitempty"`
}

type TileObjects struct {
	Occupants []ids.ObjectID         `json:"occupants"`
	Stacking  mapping.StackingLedger `json:"stacking"`
}

// DefaultComponents registers the framework's own components. Game components
// take ids above IDPlayer.
func DefaultComponents() *Components {
	c := &Components{}
	mustRegister(c.Tiles.Register(JSONComponent(IDTilePos, "tile_position", func(v TileView) (mapping.TilePos, bool) {
		return v.Tile.Pos, true
	})))
	mustRegister(c.Tiles.Register(JSONComponent(IDTile, "tile", func(v TileView) (TileInfo, bool) {
		return TileInfo{Map: v.Map.ID}, true
	})))
	mustRegister(c.Tiles.Register(JSONComponent(IDTerrainInfo, "terrain_info", func(v TileView) (TerrainInfo, bool) {
		return TerrainInfo{Terrain: v.Tile.Terrain, Costs: v.Tile.Costs}, true
	})))
	mustRegister(c.Tiles.Register(JSONComponent(IDTileObjects, "tile_objects", func(v TileView) (TileObjects, bool) {
		occ := v.Tile.Occupants
		if occ == nil {
			occ = []ids.ObjectID{}
		}
		return TileObjects{Occupants: occ, Stacking: v.Tile.Stacking}, true
	})))

	mustRegister(c.Objects.Register(JSONComponent(IDObjectID, "object_id", func(o *objects.Object) (ids.ObjectID, bool) {
		return o.ID, true
	})))
	mustRegister(c.Objects.Register(JSONComponent(IDGridPosition, "grid_position", func(o *objects.Object) (objects.Position, bool) {
		return o.Position, o.Position.Placed
	})))
	mustRegister(c.Objects.Register(JSONComponent(IDObjectType, "object_type", func(o *objects.Object) (objects.Type, bool) {
		return o.Type, true
	})))
	mustRegister(c.Objects.Register(JSONComponent(IDObjectStacking, "object_stacking", func(o *objects.Object) (mapping.StackingClass, bool) {
		return o.Stacking, o.Stacking != ""
	})))
	mustRegister(c.Objects.Register(JSONComponent(IDObjectMovement, "object_movement", func(o *objects.Object) (objects.MovementProfile, bool) {
		return o.Movement, o.Movement.Class != "" || o.Movement.Points > 0
	})))
	mustRegister(c.Objects.Register(JSONComponent(IDPlayerMarker, "player_marker", func(o *objects.Object) (players.Marker, bool) {
		if o.Owner == nil {
			return players.Marker{}, false
		}
		return *o.Owner, true
	})))

	mustRegister(c.Players.Register(JSONComponent(IDPlayer, "player", func(p players.Player) (players.Player, bool) {
		return p, true
	})))
	return c
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

// RegisterObjectComponent tracks a game component stored in the object's
// component bag under name.
func RegisterObjectComponent[T any](c *Components, id ComponentID, name string) error {
	return c.Objects.Register(Component[*objects.Object]{
		ID:   id,
		Name: name,
		Encode: func(o *objects.Object) ([]byte, bool, error) {
			raw, ok := o.Components[name]
			if !ok {
				return nil, false, nil
			}
			return append([]byte(nil), raw...), true, nil
		},
		Decode: decodeJSON[T],
	})
}

// RegisterTileComponent tracks a derived tile component.
func RegisterTileComponent[T any](c *Components, id ComponentID, name string, get func(v TileView) (T, bool)) error {
	return c.Tiles.Register(JSONComponent(id, name, get))
}

// RegisterPlayerComponent tracks a derived player component.
func RegisterPlayerComponent[T any](c *Components, id ComponentID, name string, get func(p players.Player) (T, bool)) error {
	return c.Players.Register(JSONComponent(id, name, get))
}

// RegisterResource tracks the world resource called name. Untracked resources
// never appear in state events.
func RegisterResource[T any](c *Components, id ComponentID, name string) error {
	if name == "" {
		return fmt.Errorf("resource %d: empty name", id)
	}
	return c.Resources.Register(Component[ResourceView]{
		ID:   id,
		Name: name,
		Encode: func(v ResourceView) ([]byte, bool, error) {
			if v.Name != name {
				return nil, false, nil
			}
			return append([]byte(nil), v.Data...), true, nil
		},
		Decode: decodeJSON[T],
	})
}
