package mapping

import (
	"fmt"
	"math/rand"

	"gridtactics.dev/internal/sim/ids"
)

type GenerateParams struct {
	Width    int                      `json:"width"`
	Height   int                      `json:"height"`
	Topology Topology                 `json:"topology"`
	GridSize Vec2                     `json:"grid_size"`
	Palette  []TerrainType            `json:"palette"`
	Costs    map[string]CostTable     `json:"costs,omitempty"`
	Stacking map[StackingClass]uint32 `json:"stacking"`
}

// Generate builds a map with terrain drawn uniformly from the palette. The same
// seed always yields the same map, so a generate command can be replayed.
func Generate(id ids.MapID, p GenerateParams, seed int64) (*Map, error) {
	if len(p.Palette) == 0 {
		return nil, fmt.Errorf("empty terrain palette")
	}
	m, err := New(id, p.Width, p.Height, p.Topology, p.Palette[0], nil, p.Stacking)
	if err != nil {
		return nil, err
	}
	if p.GridSize.X > 0 && p.GridSize.Y > 0 {
		m.GridSize = p.GridSize
	}
	rng := rand.New(rand.NewSource(seed))
	for _, t := range m.tiles {
		terrain := p.Palette[rng.Intn(len(p.Palette))]
		t.Terrain = terrain
		t.Costs = p.Costs[terrain.Name].Clone()
	}
	return m, nil
}
