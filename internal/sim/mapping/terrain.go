package mapping

// TerrainClass is a broad terrain category such as Ground or Water.
type TerrainClass string

// TerrainType names a specific terrain and references exactly one class.
type TerrainType struct {
	Name  string       `json:"name" yaml:"name"`
	Class TerrainClass `json:"class" yaml:"class"`
}

// MovementClass selects the column of a tile's cost table that applies to a mover.
type MovementClass string

const (
	ClassGround TerrainClass = "Ground"
	ClassWater  TerrainClass = "Water"
)

var (
	Grassland  = TerrainType{Name: "Grassland", Class: ClassGround}
	Forest     = TerrainType{Name: "Forest", Class: ClassGround}
	Mountain   = TerrainType{Name: "Mountain", Class: ClassGround}
	Hill       = TerrainType{Name: "Hill", Class: ClassGround}
	Sand       = TerrainType{Name: "Sand", Class: ClassGround}
	CoastWater = TerrainType{Name: "CoastWater", Class: ClassWater}
	Ocean      = TerrainType{Name: "Ocean", Class: ClassWater}
)

// DefaultPalette is the terrain set used when a game does not supply its own.
func DefaultPalette() []TerrainType {
	return []TerrainType{Grassland, Forest, Mountain, Hill, Sand, CoastWater, Ocean}
}

// CostTable maps movement class to the cost of entering a tile.
type CostTable map[MovementClass]uint32

// Cost returns the entry cost for the class, defaulting to 1 when missing.
func (c CostTable) Cost(class MovementClass) uint32 {
	if v, ok := c[class]; ok {
		return v
	}
	return 1
}

func (c CostTable) Clone() CostTable {
	if c == nil {
		return nil
	}
	out := make(CostTable, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
