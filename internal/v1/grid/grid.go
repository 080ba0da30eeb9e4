// Package grid provides the integer geometry of the maze: grid/pixel
// conversions, wall queries, line stepping and distance metrics. Everything
// here is pure; all mutable game state lives with the room runtime.
package grid

// Cell identifies a single grid square by row and column.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pixel is a position in pixel space.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CellToPixel returns the pixel center of a cell.
func (m *MapConfig) CellToPixel(c Cell) Pixel {
	half := float64(m.CellSize) / 2
	return Pixel{
		X: float64(c.Col*m.CellSize) + half,
		Y: float64(c.Row*m.CellSize) + half,
	}
}

// PixelToCell returns the cell containing a pixel position. Out-of-range
// pixels are clamped to the nearest edge cell.
func (m *MapConfig) PixelToCell(p Pixel) Cell {
	c := Cell{
		Row: int(p.Y) / m.CellSize,
		Col: int(p.X) / m.CellSize,
	}
	if c.Row < 0 {
		c.Row = 0
	}
	if c.Row >= m.Rows {
		c.Row = m.Rows - 1
	}
	if c.Col < 0 {
		c.Col = 0
	}
	if c.Col >= m.Cols {
		c.Col = m.Cols - 1
	}
	return c
}

// InBounds reports whether the cell lies inside the map.
func (m *MapConfig) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < m.Rows && c.Col >= 0 && c.Col < m.Cols
}

// IsWall reports whether the cell is a wall. Out-of-bounds cells count as walls.
func (m *MapConfig) IsWall(c Cell) bool {
	if !m.InBounds(c) {
		return true
	}
	_, ok := m.walls[c]
	return ok
}

// IsRoad reports whether the cell is walkable.
func (m *MapConfig) IsRoad(c Cell) bool {
	return m.InBounds(c) && !m.IsWall(c)
}

// IsRoadIntersection reports whether the cell sits on the road lattice
// (row or column is a multiple of the block size).
func (m *MapConfig) IsRoadIntersection(c Cell) bool {
	if !m.InBounds(c) {
		return false
	}
	return c.Row%m.Block == 0 && c.Col%m.Block == 0
}

// Chebyshev returns the Chebyshev (chessboard) distance between two cells.
func Chebyshev(a, b Cell) int {
	dr := abs(a.Row - b.Row)
	dc := abs(a.Col - b.Col)
	if dr > dc {
		return dr
	}
	return dc
}

// Adjacent reports whether two cells are within one step of each other,
// diagonals included. A cell is adjacent to itself.
func Adjacent(a, b Cell) bool {
	return Chebyshev(a, b) <= 1
}

// PathCells returns the ordered cells visited moving from `from` to `to`
// using Bresenham line stepping. The result always starts at `from` and
// ends at `to`; for equal cells it is a single-element path.
func PathCells(from, to Cell) []Cell {
	dr := abs(to.Row - from.Row)
	dc := abs(to.Col - from.Col)

	sr := 1
	if from.Row > to.Row {
		sr = -1
	}
	sc := 1
	if from.Col > to.Col {
		sc = -1
	}

	path := make([]Cell, 0, max(dr, dc)+1)
	cur := from
	errTerm := dc - dr
	for {
		path = append(path, cur)
		if cur == to {
			return path
		}
		e2 := 2 * errTerm
		if e2 > -dr {
			errTerm -= dr
			cur.Col += sc
		}
		if e2 < dc {
			errTerm += dc
			cur.Row += sr
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
