package grid

// MapConfig describes a static maze layout. The maze is a lattice of roads:
// every cell whose row or column is a multiple of Block is walkable, the
// rest are walls, minus any extra carve-outs listed in ExtraRoads.
//
// The layout is non-wrapping; rows do not connect across the map edge.
type MapConfig struct {
	Rows     int // Number of grid rows
	Cols     int // Number of grid columns
	CellSize int // Pixel size of one cell (square)
	Block    int // Road lattice spacing

	SpawnSlots    []Cell // Preferred player spawn cells
	CoinSlots     []Cell // Candidate coin cells
	SinkholeSlots []Cell // Candidate sinkhole cells
	TrapSlots     []Cell // Candidate collectible-trap cells

	walls map[Cell]struct{}
}

// buildWalls fills the wall set from the road lattice.
func (m *MapConfig) buildWalls(extraRoads []Cell) {
	m.walls = make(map[Cell]struct{})
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if r%m.Block != 0 && c%m.Block != 0 {
				m.walls[Cell{Row: r, Col: c}] = struct{}{}
			}
		}
	}
	for _, c := range extraRoads {
		delete(m.walls, c)
	}
}

// RoadIntersections returns all lattice intersection cells in row-major order.
// Used as the spawn fallback when the configured spawn slots run out.
func (m *MapConfig) RoadIntersections() []Cell {
	var out []Cell
	for r := 0; r < m.Rows; r += m.Block {
		for c := 0; c < m.Cols; c += m.Block {
			out = append(out, Cell{Row: r, Col: c})
		}
	}
	return out
}

// PixelWidth returns the map width in pixels.
func (m *MapConfig) PixelWidth() int { return m.Cols * m.CellSize }

// PixelHeight returns the map height in pixels.
func (m *MapConfig) PixelHeight() int { return m.Rows * m.CellSize }

// DefaultMap returns the bundled static maze: a 48x48 lattice with a
// 4-cell block, 32px cells, and hand-placed item slots spread over the
// road network.
func DefaultMap() *MapConfig {
	m := &MapConfig{
		Rows:     48,
		Cols:     48,
		CellSize: 32,
		Block:    4,
	}

	// Corner-ish spawn spread so players do not start stacked.
	m.SpawnSlots = []Cell{
		{Row: 0, Col: 0}, {Row: 0, Col: 44}, {Row: 44, Col: 0}, {Row: 44, Col: 44},
		{Row: 0, Col: 20}, {Row: 20, Col: 0}, {Row: 44, Col: 20}, {Row: 20, Col: 44},
		{Row: 24, Col: 24}, {Row: 12, Col: 12}, {Row: 36, Col: 36}, {Row: 12, Col: 36},
		{Row: 36, Col: 12}, {Row: 8, Col: 28}, {Row: 28, Col: 8}, {Row: 40, Col: 28},
	}

	// Coin slots: every second lattice intersection plus mid-corridor cells.
	for r := 0; r < m.Rows; r += m.Block {
		for c := 2; c < m.Cols; c += m.Block {
			m.CoinSlots = append(m.CoinSlots, Cell{Row: r, Col: c})
		}
	}
	for r := 2; r < m.Rows; r += m.Block * 2 {
		for c := 0; c < m.Cols; c += m.Block {
			m.CoinSlots = append(m.CoinSlots, Cell{Row: r, Col: c})
		}
	}

	m.SinkholeSlots = []Cell{
		{Row: 4, Col: 4}, {Row: 4, Col: 40}, {Row: 40, Col: 4}, {Row: 40, Col: 40},
		{Row: 24, Col: 8}, {Row: 8, Col: 24}, {Row: 24, Col: 40}, {Row: 40, Col: 24},
	}

	m.TrapSlots = []Cell{
		{Row: 8, Col: 8}, {Row: 8, Col: 36}, {Row: 36, Col: 8}, {Row: 36, Col: 36},
		{Row: 16, Col: 24}, {Row: 24, Col: 16}, {Row: 32, Col: 24}, {Row: 24, Col: 32},
	}

	m.buildWalls(nil)
	return m
}
