package pruning

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MinResidual is the residual norm floor used when the configured dependency
// threshold is smaller.
const MinResidual = 1e-10

// Drop describes a column removed as linearly dependent on kept columns.
type Drop struct {
	Column     int
	Residual   float64
	RuledOutBy []int
}

// GramSchmidt walks the columns of x in order, projecting each onto the
// orthonormal basis of the columns kept so far. A column whose residual norm
// does not exceed threshold is dropped. The first column is always kept.
func GramSchmidt(x *mat.Dense, threshold float64) (kept []int, drops []Drop) {
	if threshold < MinResidual {
		threshold = MinResidual
	}
	r, c := x.Dims()
	var basis []*mat.VecDense
	var owner []int // kept column behind each basis vector
	for j := 0; j < c; j++ {
		v := mat.NewVecDense(r, mat.Col(nil, j, x))
		norm0 := mat.Norm(v, 2)
		coef := make([]float64, len(basis))
		// modified Gram-Schmidt: project the running residual
		for k, q := range basis {
			coef[k] = mat.Dot(v, q)
			v.AddScaledVec(v, -coef[k], q)
		}
		res := mat.Norm(v, 2)
		if len(kept) == 0 || res > threshold {
			kept = append(kept, j)
			if res > threshold {
				v.ScaleVec(1/res, v)
				basis = append(basis, v)
				owner = append(owner, j)
			}
			continue
		}
		d := Drop{Column: j, Residual: res}
		for k, a := range coef {
			if math.Abs(a) > 1e-8*math.Max(norm0, 1) {
				d.RuledOutBy = append(d.RuledOutBy, owner[k])
			}
		}
		drops = append(drops, d)
	}
	return kept, drops
}
