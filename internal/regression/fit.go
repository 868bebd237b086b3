package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "regression"

// ZeroTolerance is the magnitude below which a Lasso coefficient counts as zero.
const ZeroTolerance = 1e-4

// Term describes one design-matrix column.
type Term struct {
	Name      string
	Priority  float64
	Whitelist bool
	Intercept bool
}

// Options configures Fit.
type Options struct {
	RidgeLambda    float64
	Lasso          LassoOptions
	PriorityFilter bool
	MinPriority    float64
}

// Result holds one coefficient per term; terms outside Active have
// coefficient 0 and a nil p-value.
type Result struct {
	Active    []int
	Coef      []float64
	PValues   []*float64
	Converged bool
	// Inference is false when OLS failed and Coef carries Lasso estimates.
	Inference bool
}

// Predict evaluates x·Coef; x must have one column per term.
func (r *Result) Predict(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for _, j := range r.Active {
			s += x.At(i, j) * r.Coef[j]
		}
		out[i] = s
	}
	return out
}

// Fit runs the full coefficient estimation on x (one column per term):
// optional priority filtering, the overfit guard, ridge with rule removal on
// singularity, two Lasso passes dropping near-zero coefficients, then OLS for
// coefficients and p-values.
func Fit(x *mat.Dense, y []float64, terms []Term, opt Options, c *diag.Collector) (*Result, error) {
	n, p := x.Dims()
	if p != len(terms) {
		return nil, fmt.Errorf("%w: %d columns for %d terms", errs.ErrInvalidRecord, p, len(terms))
	}
	if n != len(y) {
		return nil, fmt.Errorf("%w: %d rows for %d targets", errs.ErrInvalidRecord, n, len(y))
	}

	active := make([]int, 0, p)
	for j := range terms {
		active = append(active, j)
	}
	if opt.PriorityFilter {
		kept := active[:0]
		for _, j := range active {
			t := terms[j]
			if !t.Intercept && t.Priority < opt.MinPriority {
				c.Warn(Stage, "rule below minimum priority removed", "rule", t.Name, "priority", t.Priority)
				continue
			}
			kept = append(kept, j)
		}
		active = kept
		if countRules(terms, active) == 0 {
			return nil, fmt.Errorf("%w: every rule is below min_priority %g", errs.ErrNoRules, opt.MinPriority)
		}
		if rules := countRules(terms, active); rules > n {
			return nil, fmt.Errorf("%w: %d rules for %d records", errs.ErrOverfit, rules, n)
		}
	}
	if countRules(terms, active) == 0 {
		return nil, errs.ErrNoRules
	}

	// ridge with removal on singularity
	var start []float64
	for {
		b, err := Ridge(subColumns(x, active), y, opt.RidgeLambda)
		if err == nil {
			start = b
			break
		}
		drop := removalCandidate(terms, active)
		if drop < 0 {
			return nil, fmt.Errorf("%w: no rules left to remove", errs.ErrUnsolvable)
		}
		c.Warn(Stage, "rule removed to make the ridge system solvable", "rule", terms[active[drop]].Name)
		active = append(active[:drop], active[drop+1:]...)
		if countRules(terms, active) == 0 {
			return nil, fmt.Errorf("%w: no rules left after removals", errs.ErrUnsolvable)
		}
	}

	converged := true
	for pass := 1; pass <= 2; pass++ {
		lopt := opt.Lasso
		lopt.Start = start
		lopt.Unpenalized = make([]bool, len(active))
		for k, j := range active {
			lopt.Unpenalized[k] = terms[j].Intercept
		}
		lr := Lasso(subColumns(x, active), y, lopt)
		if !lr.Converged {
			converged = false
			c.Warn(Stage, "lasso did not converge", "pass", pass, "iterations", lr.Iterations)
		}
		var next []int
		start = start[:0]
		for k, j := range active {
			if terms[j].Intercept || math.Abs(lr.Coef[k]) >= ZeroTolerance {
				next = append(next, j)
				start = append(start, lr.Coef[k])
			}
		}
		if removed := len(active) - len(next); removed > 0 {
			c.Debug(Stage, "lasso zeroed coefficients", "pass", pass, "removed", removed)
		}
		active = next
		if countRules(terms, active) == 0 {
			return nil, errs.ErrAllZeroed
		}
	}

	res := &Result{
		Active:    active,
		Coef:      make([]float64, p),
		PValues:   make([]*float64, p),
		Converged: converged,
	}
	ols, err := OLS(subColumns(x, active), y)
	if err != nil {
		c.Warn(Stage, "OLS failed; keeping lasso coefficients without p-values", "error", err.Error())
		for k, j := range active {
			res.Coef[j] = start[k]
		}
		return res, nil
	}
	if ols.Nudged {
		c.Warn(Stage, "normal equations singular; OLS solved with a small ridge term", "lambda", olsNudge)
	}
	res.Inference = true
	for k, j := range active {
		res.Coef[j] = ols.Coef[k]
		res.PValues[j] = ols.PValues[k]
	}
	return res, nil
}

func countRules(terms []Term, active []int) int {
	n := 0
	for _, j := range active {
		if !terms[j].Intercept {
			n++
		}
	}
	return n
}

// removalCandidate picks the position in active of the lowest-priority
// non-whitelist rule, or of the lowest-priority whitelist rule when only those
// remain. Ties go to the later column. It returns -1 when nothing can go.
func removalCandidate(terms []Term, active []int) int {
	best := -1
	for _, whitelist := range []bool{false, true} {
		for k, j := range active {
			t := terms[j]
			if t.Intercept || t.Whitelist != whitelist {
				continue
			}
			if best < 0 || t.Priority <= terms[active[best]].Priority {
				best = k
			}
		}
		if best >= 0 {
			return best
		}
	}
	return -1
}

func subColumns(x *mat.Dense, cols []int) *mat.Dense {
	r, _ := x.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for k, j := range cols {
		for i := 0; i < r; i++ {
			out.Set(i, k, x.At(i, j))
		}
	}
	return out
}
