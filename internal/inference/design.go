// Package inference turns rules into numeric feature columns by fuzzy
// inference and assembles the design matrix.
package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/rules"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "inference"

// Design is the regression input: one row per record, one column per rule in
// the order given to BuildDesign.
type Design struct {
	X *mat.Dense
	Y []float64
}

type momKey struct {
	label    int
	strength float64
}

// Defuzzifier computes middle-of-maximum values over the output universe and
// memoizes them per (output label, firing strength).
type Defuzzifier struct {
	universe []float64
	curves   [][]float64
	cache    map[momKey]float64
}

// NewDefuzzifier binds to the output universe and curves of s.
func NewDefuzzifier(s *features.Space) *Defuzzifier {
	return &Defuzzifier{universe: s.Universe, curves: s.Curves, cache: map[momKey]float64{}}
}

// MiddleOfMaximum caps the curve of output label at strength and returns the
// mean of universe points reaching the capped maximum.
func (d *Defuzzifier) MiddleOfMaximum(label int, strength float64) float64 {
	k := momKey{label, strength}
	if v, ok := d.cache[k]; ok {
		return v
	}
	curve := d.curves[label]
	peak := 0.0
	for _, m := range curve {
		if c := math.Min(m, strength); c > peak {
			peak = c
		}
	}
	var sum float64
	var n int
	for i, m := range curve {
		if math.Min(m, strength) == peak {
			sum += d.universe[i]
			n++
		}
	}
	v := 0.0
	if n > 0 {
		v = sum / float64(n)
	}
	d.cache[k] = v
	return v
}

// FiringStrength is the minimum antecedent degree of rule r on record rec.
// The intercept always fires with strength 1.
func FiringStrength(s *features.Space, r rules.Rule, rec int) (float64, error) {
	if r.Intercept {
		return 1, nil
	}
	strength := 1.0
	for _, a := range r.Antecedents {
		d, err := s.Degree(rec, a.Variable, a.Level)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(d) {
			name, _ := s.FeatureName(a.Variable, a.Level)
			return 0, &errs.RecordError{Record: rec, Column: name}
		}
		strength = math.Min(strength, d)
	}
	return strength, nil
}

// BuildDesign evaluates every rule on every record. The cell value is the
// middle of maximum of the consequent capped at the firing strength, times the
// firing strength. The intercept column is all ones.
func BuildDesign(s *features.Space, rs []rules.Rule) (*Design, error) {
	n := s.Records()
	if n == 0 || len(rs) == 0 {
		return nil, errs.ErrEmptyMatrix
	}
	defuzz := NewDefuzzifier(s)
	x := mat.NewDense(n, len(rs), nil)
	for j, r := range rs {
		label := -1
		if !r.Intercept {
			label = s.OutputIndex(r.Consequent)
			if label < 0 {
				return nil, fmt.Errorf("%w: rule %q has unknown consequent", errs.ErrInvalidRule, r.Title(s.Target))
			}
		}
		for i := 0; i < n; i++ {
			w, err := FiringStrength(s, r, i)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Title(s.Target), err)
			}
			if r.Intercept {
				x.Set(i, j, 1)
				continue
			}
			if w == 0 {
				continue
			}
			x.Set(i, j, defuzz.MiddleOfMaximum(label, w)*w)
		}
	}
	y := make([]float64, n)
	copy(y, s.Y)
	return &Design{X: x, Y: y}, nil
}
