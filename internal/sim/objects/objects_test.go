package objects

import (
	"testing"

	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/players"
)

func TestMovementProfile_Admits(t *testing.T) {
	infantry := MovementProfile{
		Points:               5,
		Class:                "infantry",
		TerrainClasses:       []mapping.TerrainClass{mapping.ClassGround},
		TerrainTypeOverrides: map[string]bool{"Mountain": false, "CoastWater": true},
	}
	tests := []struct {
		terrain mapping.TerrainType
		want    bool
	}{
		{mapping.Grassland, true},
		{mapping.Mountain, false},
		{mapping.CoastWater, true},
		{mapping.Ocean, false},
	}
	for _, tc := range tests {
		if got := infantry.Admits(tc.terrain); got != tc.want {
			t.Fatalf("Admits(%s)=%v want %v", tc.terrain.Name, got, tc.want)
		}
	}
	if !(MovementProfile{}).Admits(mapping.Ocean) {
		t.Fatalf("empty admit list must admit every class")
	}
}

func TestTypeRules_Precedence(t *testing.T) {
	r := TypeRules{
		Types:   map[string]bool{"Medic": true},
		Groups:  map[string]bool{"Infantry": false},
		Classes: map[string]bool{"Unit": true},
	}
	tests := []struct {
		typ  Type
		want bool
	}{
		{Type{Name: "Medic", Group: "Infantry", Class: "Unit"}, true},
		{Type{Name: "Rifleman", Group: "Infantry", Class: "Unit"}, false},
		{Type{Name: "Tank", Group: "Armor", Class: "Unit"}, true},
		{Type{Name: "Wall", Group: "Fort", Class: "Building"}, true},
	}
	for _, tc := range tests {
		if got := r.Allows(tc.typ); got != tc.want {
			t.Fatalf("Allows(%+v)=%v want %v", tc.typ, got, tc.want)
		}
	}
}

func TestObject_CloneIsDeep(t *testing.T) {
	type hp struct{ Current, Max uint32 }
	o := &Object{
		ID:       3,
		Owner:    &players.Marker{Player: 1},
		Stacking: "ground",
		Movement: MovementProfile{TerrainTypeOverrides: map[string]bool{"Forest": true}},
	}
	if err := SetComponent(o, "health", hp{Current: 5, Max: 10}); err != nil {
		t.Fatalf("SetComponent: %v", err)
	}

	c := o.Clone()
	c.Owner.Player = 2
	c.Movement.TerrainTypeOverrides["Forest"] = false
	_ = SetComponent(c, "health", hp{Current: 1, Max: 10})

	if !o.OwnedBy(1) {
		t.Fatalf("owner mutated through clone")
	}
	if !o.Movement.TerrainTypeOverrides["Forest"] {
		t.Fatalf("overrides mutated through clone")
	}
	got, ok := GetComponent[hp](o, "health")
	if !ok || got.Current != 5 {
		t.Fatalf("component mutated through clone: %+v %v", got, ok)
	}
	if _, ok := GetComponent[hp](o, "attack"); ok {
		t.Fatalf("missing component reported present")
	}
}
