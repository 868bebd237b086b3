// Package regression fits the rule coefficients: ridge for a first stable
// solution, Lasso for sparsity and OLS for inference.
package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

// maxCondition bounds the condition number accepted from a Cholesky factorization.
const maxCondition = 1e15

// olsNudge is the ridge term tried when the plain normal equations are singular.
const olsNudge = 1e-8

func gram(x *mat.Dense, lambda float64) *mat.SymDense {
	_, p := x.Dims()
	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())
	if lambda != 0 {
		for i := 0; i < p; i++ {
			xtx.SetSym(i, i, xtx.At(i, i)+lambda)
		}
	}
	return xtx
}

func factorize(xtx *mat.SymDense) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, fmt.Errorf("%w: matrix is not positive definite", errs.ErrUnsolvable)
	}
	if c := chol.Cond(); c > maxCondition || math.IsNaN(c) {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsolvable, mat.Condition(c))
	}
	return &chol, nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Ridge solves (XᵀX + λI)β = Xᵀy.
func Ridge(x *mat.Dense, y []float64, lambda float64) ([]float64, error) {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return nil, errs.ErrEmptyMatrix
	}
	chol, err := factorize(gram(x, lambda))
	if err != nil {
		return nil, err
	}
	xty := mat.NewVecDense(p, nil)
	xty.MulVec(x.T(), mat.NewVecDense(n, y))
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, xty); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsolvable, err)
	}
	out := make([]float64, p)
	for i := range out {
		out[i] = beta.AtVec(i)
	}
	if !finite(out) {
		return nil, fmt.Errorf("%w: non-finite coefficients", errs.ErrUnsolvable)
	}
	return out, nil
}

// LassoOptions tunes coordinate descent.
type LassoOptions struct {
	Lambda        float64
	MaxIterations int
	Tolerance     float64
	// Unpenalized marks columns excluded from the L1 penalty (the intercept).
	Unpenalized []bool
	// Start is the warm start; nil starts from zero.
	Start []float64
}

// LassoResult is the outcome of coordinate descent.
type LassoResult struct {
	Coef       []float64
	Iterations int
	Converged  bool
}

// Lasso minimizes (1/2n)‖y − Xβ‖² + λ Σ|β_j| over penalized columns by
// cyclic coordinate descent with soft-thresholding. It stops when no
// coefficient moves by tolerance or more in a sweep, or after MaxIterations
// sweeps with Converged false.
func Lasso(x *mat.Dense, y []float64, opt LassoOptions) LassoResult {
	n, p := x.Dims()
	beta := make([]float64, p)
	if len(opt.Start) == p {
		copy(beta, opt.Start)
	}
	cols := make([][]float64, p)
	colSq := make([]float64, p)
	fn := float64(n)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
		for _, v := range cols[j] {
			colSq[j] += v * v
		}
		colSq[j] /= fn
	}
	resid := make([]float64, n)
	copy(resid, y)
	for j, b := range beta {
		if b == 0 {
			continue
		}
		for i, v := range cols[j] {
			resid[i] -= v * b
		}
	}

	res := LassoResult{}
	for it := 0; it < opt.MaxIterations; it++ {
		maxDelta := 0.0
		for j := 0; j < p; j++ {
			old := beta[j]
			var next float64
			if colSq[j] > 0 {
				rho := 0.0
				for i, v := range cols[j] {
					rho += v * resid[i]
				}
				rho = rho/fn + colSq[j]*old
				if j < len(opt.Unpenalized) && opt.Unpenalized[j] {
					next = rho / colSq[j]
				} else {
					next = softThreshold(rho, opt.Lambda) / colSq[j]
				}
			}
			if d := next - old; d != 0 {
				for i, v := range cols[j] {
					resid[i] -= v * d
				}
				if a := math.Abs(d); a > maxDelta {
					maxDelta = a
				}
			}
			beta[j] = next
		}
		res.Iterations = it + 1
		if maxDelta < opt.Tolerance {
			res.Converged = true
			break
		}
	}
	res.Coef = beta
	return res
}

func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}

// OLSResult carries coefficients and their two-sided t-test p-values. A nil
// p-value means it could not be computed (no residual degrees of freedom or a
// zero standard error).
type OLSResult struct {
	Coef    []float64
	StdErr  []float64
	PValues []*float64
	DF      int
	Nudged  bool
}

// OLS solves the normal equations, retrying once with a tiny ridge term when
// they are singular.
func OLS(x *mat.Dense, y []float64) (*OLSResult, error) {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return nil, errs.ErrEmptyMatrix
	}
	res := &OLSResult{DF: n - p}
	chol, err := factorize(gram(x, 0))
	if err != nil {
		chol, err = factorize(gram(x, olsNudge))
		if err != nil {
			return nil, err
		}
		res.Nudged = true
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsolvable, err)
	}
	xty := mat.NewVecDense(p, nil)
	xty.MulVec(x.T(), mat.NewVecDense(n, y))
	var beta mat.VecDense
	beta.MulVec(&inv, xty)
	res.Coef = make([]float64, p)
	for i := range res.Coef {
		res.Coef[i] = beta.AtVec(i)
	}
	if !finite(res.Coef) {
		return nil, fmt.Errorf("%w: non-finite coefficients", errs.ErrUnsolvable)
	}

	res.StdErr = make([]float64, p)
	res.PValues = make([]*float64, p)
	if res.DF <= 0 {
		return res, nil
	}
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var rss float64
	for i := 0; i < n; i++ {
		d := y[i] - fitted.AtVec(i)
		rss += d * d
	}
	sigma2 := rss / float64(res.DF)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(res.DF)}
	for j := 0; j < p; j++ {
		se := math.Sqrt(sigma2 * inv.At(j, j))
		res.StdErr[j] = se
		if se == 0 || math.IsNaN(se) {
			continue
		}
		stat := math.Abs(res.Coef[j] / se)
		pv := 2 * (1 - t.CDF(stat))
		pv = math.Max(0, math.Min(1, pv))
		res.PValues[j] = &pv
	}
	return res, nil
}
