// Package pruning removes redundant rows and columns from the design matrix.
package pruning

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "pruning"

// bucketKey hashes v quantized at precision. Vectors closer than precision
// per coordinate usually share a key; the L1 check decides.
func bucketKey(v []float64, precision float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, x := range v {
		q := math.Floor(x / precision)
		if q == 0 {
			q = 0 // fold -0
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(q))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// withinL1 accumulates |a_i-b_i| and gives up as soon as threshold is reached.
func withinL1(a, b []float64, threshold float64) bool {
	var dist float64
	for i := range a {
		dist += math.Abs(a[i] - b[i])
		if dist >= threshold {
			return false
		}
	}
	return true
}

// dedupVectors keeps the first of every group of near-identical vectors.
// dups maps a kept index to the indices it absorbed, in input order.
func dedupVectors(vecs [][]float64, threshold float64) (kept []int, dups map[int][]int) {
	dups = map[int][]int{}
	if threshold <= 0 || len(vecs) == 0 {
		kept = make([]int, len(vecs))
		for i := range kept {
			kept[i] = i
		}
		return kept, dups
	}
	precision := threshold / float64(len(vecs[0])) / 2
	buckets := map[uint64][]int{}
	for i, v := range vecs {
		key := bucketKey(v, precision)
		dup := -1
		for _, k := range buckets[key] {
			if withinL1(vecs[k], v, threshold) {
				dup = k
				break
			}
		}
		if dup >= 0 {
			dups[dup] = append(dups[dup], i)
			continue
		}
		buckets[key] = append(buckets[key], i)
		kept = append(kept, i)
	}
	return kept, dups
}

// DedupRows removes near-duplicate rows of [X|y]. It returns the surviving
// row indices and the number of rows dropped.
func DedupRows(x *mat.Dense, y []float64, threshold float64) (kept []int, dropped int) {
	r, c := x.Dims()
	vecs := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c+1)
		mat.Row(row[:c], i, x)
		row[c] = y[i]
		vecs[i] = row
	}
	kept, _ = dedupVectors(vecs, threshold)
	return kept, r - len(kept)
}

// DedupColumns removes near-duplicate columns. groups maps each kept column
// that absorbed others to the absorbed columns.
func DedupColumns(x *mat.Dense, threshold float64) (kept []int, groups map[int][]int) {
	_, c := x.Dims()
	vecs := make([][]float64, c)
	for j := 0; j < c; j++ {
		vecs[j] = mat.Col(nil, j, x)
	}
	return dedupVectors(vecs, threshold)
}

// SelectRows copies the given rows of x and y. It returns nil for no rows.
func SelectRows(x *mat.Dense, y []float64, rows []int) (*mat.Dense, []float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	_, c := x.Dims()
	out := mat.NewDense(len(rows), c, nil)
	ys := make([]float64, len(rows))
	for i, r := range rows {
		out.SetRow(i, x.RawRowView(r))
		ys[i] = y[r]
	}
	return out, ys
}

// SelectColumns copies the given columns of x. It returns nil for no columns.
func SelectColumns(x *mat.Dense, cols []int) *mat.Dense {
	if len(cols) == 0 {
		return nil
	}
	r, _ := x.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for j, c := range cols {
		out.SetCol(j, mat.Col(nil, c, x))
	}
	return out
}
