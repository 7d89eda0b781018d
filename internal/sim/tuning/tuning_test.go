package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gridtactics.dev/internal/sim/combat"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
}

func TestLoadSampleConfig(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "game.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.LogMode != "networked" || tu.Map.Width != 16 || len(tu.Players) != 2 {
		t.Fatalf("unexpected tuning: %+v", tu)
	}
	p, err := tu.MapParams()
	if err != nil {
		t.Fatalf("map params: %v", err)
	}
	if p.Costs["Forest"].Cost("infantry") != 2 || p.Costs["Forest"].Cost("armor") != 3 {
		t.Fatalf("forest costs: %+v", p.Costs["Forest"])
	}
	if p.GridSize != (mapping.Vec2{X: 16, Y: 16}) || p.Stacking["air"] != 1 {
		t.Fatalf("params: %+v", p)
	}

	tank, err := tu.Unit("Tank")
	if err != nil {
		t.Fatalf("unit: %v", err)
	}
	if tank.Movement.Admits(mapping.Mountain) || !tank.Movement.Admits(mapping.Forest) {
		t.Fatalf("tank movement profile: %+v", tank.Movement)
	}
	h, ok := objects.GetComponent[combat.Health](&tank, combat.HealthComponent)
	if !ok || h.OnDeath.Kind != combat.Capture || h.OnDeath.RestoreAt != 5 {
		t.Fatalf("tank health: %+v", h)
	}
	if _, err := tu.Unit("Dragon"); err == nil {
		t.Fatalf("expected unknown unit error")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	raw := `
log_mode: lockstep
map: {width: 0, height: 3, topology: hex}
units:
  - {name: Scout, stacking: cavalry}
players:
  - {id: 1}
  - {id: 1}
spawns:
  - {unit: Knight, x: 9, y: 9}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"log_mode", "map size", "topology", "cavalry", "duplicate player", "Knight", "outside the map"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestSetupCommands(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "game.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cmds, err := tu.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if len(cmds) != 1+len(tu.Spawns) {
		t.Fatalf("got %d commands for %d spawns", len(cmds), len(tu.Spawns))
	}
	gen, ok := cmds[0].(*commands.GenerateMap)
	if !ok || gen.Seed != 42 || gen.Params.Width != 16 {
		t.Fatalf("first command = %#v", cmds[0])
	}
	sp, ok := cmds[2].(*commands.SpawnObject)
	if !ok {
		t.Fatalf("third command = %T", cmds[2])
	}
	if sp.Object.Type.Name != "Tank" || sp.Object.Owner == nil || sp.Object.Owner.Player != 1 || sp.Pos != (mapping.TilePos{X: 2, Y: 1}) {
		t.Fatalf("tank spawn = %+v", sp)
	}

	bad := tu
	bad.Spawns = []SpawnConfig{{Unit: "Tank", Owner: 7}}
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "unknown owner 7") {
		t.Fatalf("expected unknown owner error, got %v", err)
	}
}
