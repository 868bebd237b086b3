package pruning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDedupColumns(t *testing.T) {
	x := mat.NewDense(4, 5, []float64{
		1, 0.2003, 0.2003, 0.9, 0.2003001,
		1, 0.4003, 0.4003, 0.1, 0.4003,
		1, 0.6003, 0.6003, 0.5, 0.6003,
		1, 0.8003, 0.8003002, 0.3, 0.8003,
	})
	kept, groups := DedupColumns(x, 0.01)
	assert.Equal(t, []int{0, 1, 3}, kept)
	assert.Equal(t, map[int][]int{1: {2, 4}}, groups)

	// idempotent on its own output
	sub := SelectColumns(x, kept)
	again, g2 := DedupColumns(sub, 0.01)
	assert.Equal(t, []int{0, 1, 2}, again)
	assert.Empty(t, g2)
}

func TestDedupColumns_Disabled(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{1, 1, 1, 2, 2, 2})
	kept, groups := DedupColumns(x, 0)
	assert.Equal(t, []int{0, 1, 2}, kept)
	assert.Empty(t, groups)
}

func TestDedupColumns_FarApartNotMerged(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 0.004,
		0, 0.004,
		0, 0.004,
	})
	// 0.012 apart in L1, above the 0.01 threshold
	kept, _ := DedupColumns(x, 0.01)
	assert.Equal(t, []int{0, 1}, kept)
}

func TestDedupRows(t *testing.T) {
	x := mat.NewDense(5, 2, []float64{
		1, 0.5,
		1, 0.25,
		1, 0.5,
		1, 0.5,
		1, 0.75,
	})
	y := []float64{1, 2, 1, 3, 4}
	kept, dropped := DedupRows(x, y, 0.01)
	// row 2 repeats row 0 including y; row 3 differs in y
	assert.Equal(t, []int{0, 1, 3, 4}, kept)
	assert.Equal(t, 1, dropped)

	sx, sy := SelectRows(x, y, kept)
	again, d2 := DedupRows(sx, sy, 0.01)
	assert.Equal(t, []int{0, 1, 2, 3}, again)
	assert.Zero(t, d2)
	assert.Equal(t, []float64{1, 2, 3, 4}, sy)
}

func TestGramSchmidt(t *testing.T) {
	x := mat.NewDense(4, 4, []float64{
		1, 1, 2, 0,
		1, 0, 1, 1,
		1, 1, 2, 0,
		1, 0, 1, 0,
	})
	kept, drops := GramSchmidt(x, 1e-6)
	assert.Equal(t, []int{0, 1, 3}, kept)
	require.Len(t, drops, 1)
	assert.Equal(t, 2, drops[0].Column)
	assert.Less(t, drops[0].Residual, 1e-6)
	assert.ElementsMatch(t, []int{0, 1}, drops[0].RuledOutBy)
}

func TestGramSchmidt_FirstColumnAlwaysKept(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 1,
		0, 2,
		0, 3,
	})
	kept, drops := GramSchmidt(x, 0.5)
	assert.Equal(t, []int{0, 1}, kept)
	assert.Empty(t, drops)

	// zero threshold still drops exact copies through the numerical floor
	y := mat.NewDense(2, 2, []float64{1, 1, 2, 2})
	kept, drops = GramSchmidt(y, 0)
	assert.Equal(t, []int{0}, kept)
	require.Len(t, drops, 1)
	assert.Equal(t, []int{0}, drops[0].RuledOutBy)
}
