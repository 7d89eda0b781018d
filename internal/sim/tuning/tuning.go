package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gridtactics.dev/internal/sim/combat"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int    `yaml:"tick_rate_hz"`
	LogMode            string `yaml:"log_mode"`
	Strict             bool   `yaml:"strict"`
	Diagonals          bool   `yaml:"diagonals"`
	Runner             string `yaml:"runner"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`

	Map      MapConfig         `yaml:"map"`
	Terrain  []TerrainConfig   `yaml:"terrain"`
	Stacking map[string]uint32 `yaml:"stacking"`
	Units    []UnitConfig      `yaml:"units"`
	Players  []players.Player  `yaml:"players"`
	Spawns   []SpawnConfig     `yaml:"spawns"`
}

type MapConfig struct {
	Width    int       `yaml:"width"`
	Height   int       `yaml:"height"`
	Topology string    `yaml:"topology"`
	GridSize []float64 `yaml:"grid_size"`
	Seed     int64     `yaml:"seed"`
}

// TerrainConfig is one terrain type with its entry cost per movement class.
type TerrainConfig struct {
	Name  string            `yaml:"name"`
	Class string            `yaml:"class"`
	Costs map[string]uint32 `yaml:"costs"`
}

// UnitConfig is a spawnable prototype.
type UnitConfig struct {
	Name      string                  `yaml:"name"`
	Group     string                  `yaml:"group"`
	Class     string                  `yaml:"class"`
	Stacking  string                  `yaml:"stacking"`
	Movement  objects.MovementProfile `yaml:"movement"`
	TypeRules objects.TypeRules       `yaml:"type_rules"`
	Health    *combat.Health          `yaml:"health"`
	Attack    *combat.Attack          `yaml:"attack"`
}

// SpawnConfig places one unit on the generated map during setup.
type SpawnConfig struct {
	Unit  string     `yaml:"unit"`
	Owner players.ID `yaml:"owner"`
	X     int        `yaml:"x"`
	Y     int        `yaml:"y"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		LogMode:            "local",
		Runner:             "turn_based",
		SnapshotEveryTicks: 3000,
		Map: MapConfig{
			Width:    10,
			Height:   10,
			Topology: "square",
			GridSize: []float64{16, 16},
			Seed:     1,
		},
		Terrain: []TerrainConfig{
			{Name: mapping.Grassland.Name, Class: string(mapping.ClassGround)},
		},
		Stacking: map[string]uint32{"ground": 1},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be positive"))
	}
	switch t.LogMode {
	case "local", "networked":
	default:
		errs = append(errs, fmt.Errorf("log_mode %q: want local or networked", t.LogMode))
	}
	switch t.Runner {
	case "turn_based", "real_time":
	default:
		errs = append(errs, fmt.Errorf("runner %q: want turn_based or real_time", t.Runner))
	}
	if t.Map.Width <= 0 || t.Map.Height <= 0 {
		errs = append(errs, fmt.Errorf("map size %dx%d", t.Map.Width, t.Map.Height))
	}
	if _, err := mapping.ParseTopology(t.Map.Topology); err != nil {
		errs = append(errs, err)
	}
	if n := len(t.Map.GridSize); n != 0 && n != 2 {
		errs = append(errs, fmt.Errorf("grid_size wants 2 values, got %d", n))
	}
	if len(t.Terrain) == 0 {
		errs = append(errs, fmt.Errorf("terrain palette is empty"))
	}
	seen := map[string]bool{}
	for _, tc := range t.Terrain {
		if tc.Name == "" || tc.Class == "" {
			errs = append(errs, fmt.Errorf("terrain needs name and class"))
		}
		if seen[tc.Name] {
			errs = append(errs, fmt.Errorf("duplicate terrain %s", tc.Name))
		}
		seen[tc.Name] = true
	}
	units := map[string]bool{}
	for _, u := range t.Units {
		if u.Name == "" {
			errs = append(errs, fmt.Errorf("unit without name"))
			continue
		}
		if units[u.Name] {
			errs = append(errs, fmt.Errorf("duplicate unit %s", u.Name))
		}
		units[u.Name] = true
		if _, ok := t.Stacking[u.Stacking]; !ok {
			errs = append(errs, fmt.Errorf("unit %s: unknown stacking class %q", u.Name, u.Stacking))
		}
	}
	roster, err := players.NewRoster(t.Players...)
	if err != nil {
		errs = append(errs, err)
	}
	for i, sp := range t.Spawns {
		if !units[sp.Unit] {
			errs = append(errs, fmt.Errorf("spawn %d: unknown unit %q", i, sp.Unit))
		}
		if sp.X < 0 || sp.Y < 0 || sp.X >= t.Map.Width || sp.Y >= t.Map.Height {
			errs = append(errs, fmt.Errorf("spawn %d: (%d,%d) outside the map", i, sp.X, sp.Y))
		}
		if sp.Owner != 0 && roster != nil {
			if _, ok := roster.Get(sp.Owner); !ok {
				errs = append(errs, fmt.Errorf("spawn %d: unknown owner %d", i, sp.Owner))
			}
		}
	}
	return errors.Join(errs...)
}

// Palette returns the terrain types in file order.
func (t Tuning) Palette() []mapping.TerrainType {
	out := make([]mapping.TerrainType, 0, len(t.Terrain))
	for _, tc := range t.Terrain {
		out = append(out, mapping.TerrainType{Name: tc.Name, Class: mapping.TerrainClass(tc.Class)})
	}
	return out
}

// MapParams turns the map and terrain sections into generation parameters.
func (t Tuning) MapParams() (mapping.GenerateParams, error) {
	topo, err := mapping.ParseTopology(t.Map.Topology)
	if err != nil {
		return mapping.GenerateParams{}, err
	}
	p := mapping.GenerateParams{
		Width:    t.Map.Width,
		Height:   t.Map.Height,
		Topology: topo,
		Palette:  t.Palette(),
		Costs:    map[string]mapping.CostTable{},
		Stacking: map[mapping.StackingClass]uint32{},
	}
	if len(t.Map.GridSize) == 2 {
		p.GridSize = mapping.Vec2{X: t.Map.GridSize[0], Y: t.Map.GridSize[1]}
	}
	for _, tc := range t.Terrain {
		if len(tc.Costs) == 0 {
			continue
		}
		ct := mapping.CostTable{}
		for class, c := range tc.Costs {
			ct[mapping.MovementClass(class)] = c
		}
		p.Costs[tc.Name] = ct
	}
	for class, max := range t.Stacking {
		p.Stacking[mapping.StackingClass(class)] = max
	}
	return p, nil
}

// Unit builds an object template from the named prototype.
func (t Tuning) Unit(name string) (objects.Object, error) {
	for _, u := range t.Units {
		if u.Name != name {
			continue
		}
		o := objects.Object{
			Type:      objects.Type{Name: u.Name, Group: u.Group, Class: u.Class},
			Stacking:  mapping.StackingClass(u.Stacking),
			Movement:  u.Movement.Clone(),
			TypeRules: u.TypeRules.Clone(),
		}
		if u.Health != nil {
			if err := objects.SetComponent(&o, combat.HealthComponent, *u.Health); err != nil {
				return o, err
			}
		}
		if u.Attack != nil {
			if err := objects.SetComponent(&o, combat.AttackComponent, *u.Attack); err != nil {
				return o, err
			}
		}
		return o, nil
	}
	return objects.Object{}, fmt.Errorf("unknown unit %q", name)
}

// Setup returns the commands that create a fresh game: map generation followed
// by one spawn per configured unit. Spawns target the first map id.
func (t Tuning) Setup() ([]commands.Command, error) {
	params, err := t.MapParams()
	if err != nil {
		return nil, err
	}
	out := []commands.Command{&commands.GenerateMap{Params: params, Seed: t.Map.Seed}}
	for i, sp := range t.Spawns {
		o, err := t.Unit(sp.Unit)
		if err != nil {
			return nil, fmt.Errorf("spawn %d: %w", i, err)
		}
		if sp.Owner != 0 {
			o.Owner = &players.Marker{Player: sp.Owner}
		}
		out = append(out, &commands.SpawnObject{Object: o, Map: ids.MapID(1), Pos: mapping.TilePos{X: sp.X, Y: sp.Y}})
	}
	return out, nil
}
