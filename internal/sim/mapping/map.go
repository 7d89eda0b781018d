package mapping

import (
	"fmt"

	"gridtactics.dev/internal/sim/ids"
)

type Topology uint8

const (
	TopologySquare Topology = iota
	TopologyIsometric
)

func (t Topology) String() string {
	switch t {
	case TopologySquare:
		return "square"
	case TopologyIsometric:
		return "isometric"
	default:
		return fmt.Sprintf("topology(%d)", uint8(t))
	}
}

func ParseTopology(s string) (Topology, error) {
	switch s {
	case "", "square":
		return TopologySquare, nil
	case "isometric", "iso":
		return TopologyIsometric, nil
	default:
		return 0, fmt.Errorf("unknown topology %q", s)
	}
}

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Map owns a rectangular grid of tiles stored row-major.
type Map struct {
	ID       ids.MapID
	Width    int
	Height   int
	Topology Topology
	GridSize Vec2
	Origin   Vec2

	tiles []*Tile
}

// New allocates a map whose tiles all carry terrain, costs and a fresh ledger from schema.
func New(id ids.MapID, width, height int, topology Topology, terrain TerrainType, costs CostTable, schema map[StackingClass]uint32) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", width, height)
	}
	m := &Map{
		ID:       id,
		Width:    width,
		Height:   height,
		Topology: topology,
		GridSize: Vec2{X: 1, Y: 1},
		tiles:    make([]*Tile, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.tiles[y*width+x] = &Tile{
				Pos:      TilePos{X: x, Y: y},
				Terrain:  terrain,
				Costs:    costs.Clone(),
				Stacking: NewLedger(schema),
			}
		}
	}
	return m, nil
}

func (m *Map) InBounds(p TilePos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

// Tile returns the tile at p, or false when p is out of range.
func (m *Map) Tile(p TilePos) (*Tile, bool) {
	if m == nil || !m.InBounds(p) {
		return nil, false
	}
	return m.tiles[p.Y*m.Width+p.X], true
}

// Tiles returns every tile in row-major order.
func (m *Map) Tiles() []*Tile { return m.tiles }

// SetTerrain replaces the terrain and cost table of one tile.
func (m *Map) SetTerrain(p TilePos, terrain TerrainType, costs CostTable) bool {
	t, ok := m.Tile(p)
	if !ok {
		return false
	}
	t.Terrain = terrain
	t.Costs = costs.Clone()
	return true
}

// Occupied reports whether any tile still holds an occupant.
func (m *Map) Occupied() bool {
	for _, t := range m.tiles {
		if len(t.Occupants) > 0 {
			return true
		}
	}
	return false
}

var (
	cardinalDirs = [4]TilePos{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}
	diagonalDirs = [4]TilePos{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1}, {X: -1, Y: 1}}
)

// Neighbors returns the in-range neighbors of p in fixed order: N, E, S, W and,
// when diagonals is set, NE, SE, SW, NW.
func (m *Map) Neighbors(p TilePos, diagonals bool) []TilePos {
	out := make([]TilePos, 0, 8)
	for _, d := range cardinalDirs {
		if n := p.Add(d.X, d.Y); m.InBounds(n) {
			out = append(out, n)
		}
	}
	if diagonals {
		for _, d := range diagonalDirs {
			if n := p.Add(d.X, d.Y); m.InBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

func (m *Map) Clone() *Map {
	out := *m
	out.tiles = make([]*Tile, len(m.tiles))
	for i, t := range m.tiles {
		out.tiles[i] = t.Clone()
	}
	return &out
}

// FromTiles rebuilds a map from row-major tiles, as produced by Tiles.
func FromTiles(id ids.MapID, width, height int, topology Topology, gridSize, origin Vec2, tiles []*Tile) (*Map, error) {
	if width <= 0 || height <= 0 || len(tiles) != width*height {
		return nil, fmt.Errorf("tile count %d does not match %dx%d", len(tiles), width, height)
	}
	m := &Map{ID: id, Width: width, Height: height, Topology: topology, GridSize: gridSize, Origin: origin, tiles: make([]*Tile, len(tiles))}
	for i, t := range tiles {
		want := TilePos{X: i % width, Y: i / width}
		if t == nil || t.Pos != want {
			return nil, fmt.Errorf("tile %d out of order", i)
		}
		m.tiles[i] = t
	}
	return m, nil
}
