package systems

import "math"

// Bounds is the axis-aligned world rectangle entities are confined to.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float32
}

// Clamp returns (x, y) limited to the bounds.
func (b Bounds) Clamp(x, y float32) (float32, float32) {
	return clampFloat(x, b.MinX, b.MaxX), clampFloat(y, b.MinY, b.MaxY)
}

// minFoodCell bounds the grid size for tiny detection ranges.
const minFoodCell = 16

// FoodGrid buckets food snapshot indices by cell for radius queries.
// Items outside the bounds land in the nearest edge cell.
type FoodGrid struct {
	cellSize float32
	minX     float32
	minY     float32
	cols     int
	rows     int
	cells    [][]int32
}

// NewFoodGrid creates a grid covering b with square cells of cellSize.
func NewFoodGrid(b Bounds, cellSize float32) *FoodGrid {
	g := &FoodGrid{}
	g.Reset(b, cellSize)
	return g
}

// Reset re-dimensions the grid if the bounds or cell size changed, and
// empties it.
func (g *FoodGrid) Reset(b Bounds, cellSize float32) {
	if cellSize < minFoodCell {
		cellSize = minFoodCell
	}
	cols := int((b.MaxX-b.MinX)/cellSize) + 1
	rows := int((b.MaxY-b.MinY)/cellSize) + 1
	if cols != g.cols || rows != g.rows || cellSize != g.cellSize {
		g.cells = make([][]int32, cols*rows)
		for i := range g.cells {
			g.cells[i] = make([]int32, 0, 4)
		}
		g.cols, g.rows, g.cellSize = cols, rows, cellSize
	}
	g.minX, g.minY = b.MinX, b.MinY
	g.Clear()
}

// Clear removes all items from the grid.
func (g *FoodGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds item idx at the given position.
func (g *FoodGrid) Insert(idx int, x, y float32) {
	c := g.cellIndex(g.col(x), g.row(y))
	g.cells[c] = append(g.cells[c], int32(idx))
}

// QueryInto appends the indices stored in every cell overlapping the square
// of half-size radius around (x, y). Callers filter by exact distance.
func (g *FoodGrid) QueryInto(dst []int32, x, y, radius float32) []int32 {
	c0, c1 := g.col(x-radius), g.col(x+radius)
	r0, r1 := g.row(y-radius), g.row(y+radius)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			dst = append(dst, g.cells[g.cellIndex(c, r)]...)
		}
	}
	return dst
}

func (g *FoodGrid) col(x float32) int {
	return clampInt(int(math.Floor(float64((x-g.minX)/g.cellSize))), 0, g.cols-1)
}

func (g *FoodGrid) row(y float32) int {
	return clampInt(int(math.Floor(float64((y-g.minY)/g.cellSize))), 0, g.rows-1)
}

func (g *FoodGrid) cellIndex(col, row int) int {
	return row*g.cols + col
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func distanceSq(x1, y1, x2, y2 float32) float32 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}

func distance(x1, y1, x2, y2 float32) float32 {
	return float32(math.Sqrt(float64(distanceSq(x1, y1, x2, y2))))
}

// velocityMagnitude returns the length of (vx, vy).
func velocityMagnitude(vx, vy float32) float32 {
	return float32(math.Sqrt(float64(vx*vx + vy*vy)))
}
