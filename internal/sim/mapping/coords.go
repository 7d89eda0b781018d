package mapping

import "math"

// TileToWorld returns the world-space center of p.
func (m *Map) TileToWorld(p TilePos) Vec2 {
	gw, gh := m.gridSize()
	switch m.Topology {
	case TopologyIsometric:
		return Vec2{
			X: m.Origin.X + float64(p.X-p.Y)*gw/2,
			Y: m.Origin.Y + float64(p.X+p.Y)*gh/2,
		}
	default:
		return Vec2{
			X: m.Origin.X + (float64(p.X)+0.5)*gw,
			Y: m.Origin.Y + (float64(p.Y)+0.5)*gh,
		}
	}
}

// WorldToTile returns the tile containing v. A point on a shared boundary
// belongs to the tile with the lower coordinate on that axis.
func (m *Map) WorldToTile(v Vec2) (TilePos, bool) {
	gw, gh := m.gridSize()
	var p TilePos
	switch m.Topology {
	case TopologyIsometric:
		a := (v.X - m.Origin.X) / (gw / 2)
		b := (v.Y - m.Origin.Y) / (gh / 2)
		// u and v are tile-space coordinates measured from the edge of tile 0.
		u := (a+b)/2 + 0.5
		w := (b-a)/2 + 0.5
		p = TilePos{X: axisIndex(u, 1), Y: axisIndex(w, 1)}
	default:
		p = TilePos{
			X: axisIndex(v.X-m.Origin.X, gw),
			Y: axisIndex(v.Y-m.Origin.Y, gh),
		}
	}
	if !m.InBounds(p) {
		return TilePos{}, false
	}
	return p, true
}

func (m *Map) gridSize() (float64, float64) {
	gw, gh := m.GridSize.X, m.GridSize.Y
	if gw <= 0 {
		gw = 1
	}
	if gh <= 0 {
		gh = 1
	}
	return gw, gh
}

// axisIndex maps an offset along one axis to a cell index. Exact boundaries
// resolve to the lower cell, except the leading edge of cell 0.
func axisIndex(d, size float64) int {
	f := d / size
	idx := math.Floor(f)
	if f == idx && idx > 0 {
		idx--
	}
	return int(idx)
}
