package terrain

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dirN  = 1
	dirE  = 4
	dirS  = 6
	dirSE = 7
)

var sloped = [][]float64{
	{10, 9, 8},
	{9, 8, 7},
	{8, 7, 6},
}

func TestFlowDirections_CenterDrainsSoutheast(t *testing.T) {
	dir := FlowDirections(sloped)

	assert.Equal(t, dirSE, dir[1][1])
}

func TestFlowDirections_SlopedGrid(t *testing.T) {
	expected := [][]int{
		{dirSE, dirSE, dirS},
		{dirSE, dirSE, dirS},
		{dirE, dirE, dirN},
	}

	assert.Equal(t, expected, FlowDirections(sloped))
}

func TestFlowDirections_TieKeepsFirstNeighbor(t *testing.T) {
	// N and W are equally steep; N is examined first.
	dem := [][]float64{
		{0, 0},
		{0, 1},
	}

	dir := FlowDirections(dem)

	assert.Equal(t, dirN, dir[1][1])
}

func TestRunD8_SlopedGrid(t *testing.T) {
	flow := RunD8(sloped)

	expected := [][]float64{
		{1, 1, 1},
		{1, 2, 12},
		{1, 3, 9},
	}
	assert.Equal(t, expected, flow.Accumulation)
	assert.Equal(t, 12.0, flow.MaxAccumulation())

	// The outlet at (2,2) sends everything back to the already-visited (1,2).
	assert.Equal(t, 9.0, flow.retained[1][2])
	assert.Equal(t, 9.0, sum(flow.retained))

	r, c, ok := flow.downstream(1, 1)
	require.True(t, ok)
	assert.Equal(t, [2]int{2, 2}, [2]int{r, c})
}

func TestRunD8_InvalidCellsExcluded(t *testing.T) {
	nan := math.NaN()
	dem := [][]float64{
		{5, nan, 3},
		{nan, nan, nan},
		{nan, nan, 1},
	}

	flow := RunD8(dem)

	// Every valid cell is isolated.
	for _, rc := range [][2]int{{0, 0}, {0, 2}, {2, 2}} {
		assert.Equal(t, NoDirection, flow.Direction[rc[0]][rc[1]])
		assert.Equal(t, 1.0, flow.Accumulation[rc[0]][rc[1]])
		assert.Equal(t, 1.0, flow.retained[rc[0]][rc[1]])
	}
	assert.Equal(t, NoDirection, flow.Direction[1][1])
	assert.Equal(t, 0.0, flow.Accumulation[1][1])
	assert.Equal(t, 3.0, sum(flow.retained))

	_, _, ok := flow.downstream(1, 1)
	assert.False(t, ok)
}

func TestRunD8_NeverRoutesIntoInvalidCells(t *testing.T) {
	nan := math.NaN()
	dem := [][]float64{
		{9, 8, 7},
		{8, nan, 6},
		{7, 6, 5},
	}

	flow := RunD8(dem)

	for r := range dem {
		for c := range dem[r] {
			nr, nc, ok := flow.downstream(r, c)
			if !ok {
				continue
			}
			assert.False(t, math.IsNaN(dem[nr][nc]), "cell (%d,%d) drains into invalid cell", r, c)
		}
	}
	assert.Equal(t, 8.0, sum(flow.retained))
}

func TestRunD8_ConservesWater(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))

	for _, size := range []int{1, 2, 5, 10, 15} {
		dem := make([][]float64, size)
		valid := 0
		for r := range dem {
			dem[r] = make([]float64, size)
			for c := range dem[r] {
				if rng.Float64() < 0.1 {
					dem[r][c] = math.NaN()
					continue
				}
				// Coarse values force plenty of ties.
				dem[r][c] = float64(rng.IntN(20))
				valid++
			}
		}

		flow := RunD8(dem)

		assert.InDelta(t, float64(valid), sum(flow.retained), 1e-9, "size %d", size)
		if valid > 0 {
			assert.GreaterOrEqual(t, flow.MaxAccumulation(), 1.0)
		}
	}
}

func TestRunD8_Empty(t *testing.T) {
	flow := RunD8(nil)

	assert.Equal(t, 0.0, flow.MaxAccumulation())
}

func sum(grid [][]float64) float64 {
	var total float64
	for _, row := range grid {
		for _, v := range row {
			total += v
		}
	}
	return total
}
