package terrain

import (
	"cmp"
	"math"
	"slices"
)

// NoDirection marks a cell without an outflow: an invalid cell, or one with
// no valid in-grid neighbor.
const NoDirection = -1

// Neighbor offsets in enumeration order NW, N, NE, W, E, SW, S, SE.
var (
	dRow = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
	dCol = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
)

// Flow is the result of running the D8 model over an elevation grid.
// NaN cells in the input are invalid: they have no direction, hold no water
// and are never chosen as a neighbor.
type Flow struct {
	// Direction holds, per cell, an index into the NW..SE enumeration or NoDirection.
	Direction [][]int
	// Accumulation starts at 1 per valid cell and carries everything routed through it.
	Accumulation [][]float64
	// retained is the water still held by each cell once every cell has been
	// visited. It sums to the number of valid cells.
	retained [][]float64
}

// MaxAccumulation returns the largest accumulation value, or 0 for an empty grid.
func (f Flow) MaxAccumulation() float64 {
	var best float64
	for _, row := range f.Accumulation {
		for _, v := range row {
			best = math.Max(best, v)
		}
	}
	return best
}

// downstream returns the cell that (r, c) drains into.
func (f Flow) downstream(r, c int) (int, int, bool) {
	d := f.Direction[r][c]
	if d == NoDirection {
		return 0, 0, false
	}
	return r + dRow[d], c + dCol[d], true
}

// FlowDirections assigns each valid cell the neighbor with the steepest slope,
// (dem[cell]-dem[n])/distance. No threshold is applied, so a cell in a pit still
// drains to its least-uphill neighbor. Ties keep the first neighbor examined.
func FlowDirections(dem [][]float64) [][]int {
	rows := len(dem)
	dir := make([][]int, rows)
	for r := range rows {
		cols := len(dem[r])
		dir[r] = make([]int, cols)
		for c := range cols {
			dir[r][c] = steepest(dem, r, c)
		}
	}
	return dir
}

func steepest(dem [][]float64, r, c int) int {
	z := dem[r][c]
	if math.IsNaN(z) {
		return NoDirection
	}

	best := NoDirection
	bestSlope := math.Inf(-1)
	for k := range dRow {
		nr, nc := r+dRow[k], c+dCol[k]
		if nr < 0 || nr >= len(dem) || nc < 0 || nc >= len(dem[nr]) {
			continue
		}
		nz := dem[nr][nc]
		if math.IsNaN(nz) {
			continue
		}
		dist := 1.0
		if dRow[k] != 0 && dCol[k] != 0 {
			dist = math.Sqrt2
		}
		if slope := (z - nz) / dist; slope > bestSlope {
			best, bestSlope = k, slope
		}
	}
	return best
}

// RunD8 computes flow directions and then accumulation by visiting cells once
// in descending elevation order, each passing its current accumulation to its
// downstream neighbor. Equal elevations are visited in row-major order.
func RunD8(dem [][]float64) Flow {
	dir := FlowDirections(dem)
	rows := len(dem)

	acc := make([][]float64, rows)
	retained := make([][]float64, rows)
	visited := make([][]bool, rows)

	type cell struct {
		r, c int
		z    float64
	}
	var order []cell
	for r := range rows {
		cols := len(dem[r])
		acc[r] = make([]float64, cols)
		retained[r] = make([]float64, cols)
		visited[r] = make([]bool, cols)
		for c := range cols {
			if math.IsNaN(dem[r][c]) {
				continue
			}
			acc[r][c] = 1
			order = append(order, cell{r, c, dem[r][c]})
		}
	}
	slices.SortStableFunc(order, func(a, b cell) int {
		return cmp.Compare(b.z, a.z)
	})

	for _, cur := range order {
		visited[cur.r][cur.c] = true
		d := dir[cur.r][cur.c]
		if d == NoDirection {
			continue
		}
		nr, nc := cur.r+dRow[d], cur.c+dCol[d]
		acc[nr][nc] += acc[cur.r][cur.c]
		// Anything arriving after a cell's visit stays there.
		if visited[nr][nc] {
			retained[nr][nc] += acc[cur.r][cur.c]
		}
	}

	for r := range rows {
		for c := range dir[r] {
			if dir[r][c] == NoDirection {
				retained[r][c] = acc[r][c]
			}
		}
	}

	return Flow{Direction: dir, Accumulation: acc, retained: retained}
}
