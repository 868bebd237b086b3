// Package fuzzy maps scalars to degrees of membership in ordered triangular sets.
package fuzzy

import (
	"math"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

// UniverseSize is the number of points of the discretized output universe.
const UniverseSize = 100

// Bounds is the closed range a variable is fuzzified over.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Span is Max-Min.
func (b Bounds) Span() float64 { return b.Max - b.Min }

// Memberships returns one degree per label for x. Degrees are clamped at the
// extremes, renormalized to sum to 1 and rounded to 4 decimals. If no set
// fires at all every degree is 0.
func Memberships(x float64, b Bounds, labels []Label) ([]float64, error) {
	n := len(labels)
	if !SupportedArity(n) {
		return nil, errs.Invalidf("unsupported number of fuzzy sets %d (use 3, 5, 6 or 7)", n)
	}
	if b.Max < b.Min || math.IsNaN(b.Min) || math.IsNaN(b.Max) {
		return nil, errs.Invalidf("invalid bounds [%g, %g]", b.Min, b.Max)
	}
	out := make([]float64, n)
	if math.IsNaN(x) {
		return out, nil
	}
	if x <= b.Min {
		out[0] = 1
		return out, nil
	}
	if x >= b.Max {
		out[n-1] = 1
		return out, nil
	}

	step := b.Span() / float64(n-1)
	var sum float64
	for i := range out {
		peak := b.Min + float64(i)*step
		left, right := peak-step, peak+step
		if i == 0 {
			left = b.Min
		}
		if i == n-1 {
			right = b.Max
			peak = b.Max
		}
		out[i] = triangle(x, left, peak, right)
		sum += out[i]
	}
	if sum == 0 {
		for i := range out {
			out[i] = 0
		}
		return out, nil
	}
	for i := range out {
		out[i] = round4(out[i] / sum)
	}
	return out, nil
}

// Universe returns size evenly spaced points covering b.
func Universe(b Bounds, size int) []float64 {
	if size <= 0 {
		return nil
	}
	out := make([]float64, size)
	if size == 1 {
		out[0] = b.Min
		return out
	}
	step := b.Span() / float64(size-1)
	for i := range out {
		out[i] = b.Min + float64(i)*step
	}
	out[size-1] = b.Max
	return out
}

// Curves evaluates every label over universe: result[label][point].
func Curves(universe []float64, b Bounds, labels []Label) ([][]float64, error) {
	out := make([][]float64, len(labels))
	for i := range out {
		out[i] = make([]float64, len(universe))
	}
	for p, x := range universe {
		deg, err := Memberships(x, b, labels)
		if err != nil {
			return nil, err
		}
		for i, d := range deg {
			out[i][p] = d
		}
	}
	return out, nil
}

// Dominant returns the index of the highest degree; ties resolve to the lower index.
// It returns -1 when every degree is 0.
func Dominant(degrees []float64) int {
	best, idx := 0.0, -1
	for i, d := range degrees {
		if d > best {
			best, idx = d, i
		}
	}
	return idx
}

func triangle(x, left, peak, right float64) float64 {
	switch {
	case x == peak:
		return 1
	case x > left && x < peak:
		return (x - left) / (peak - left)
	case x > peak && x < right:
		return (right - x) / (right - peak)
	default:
		return 0
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
