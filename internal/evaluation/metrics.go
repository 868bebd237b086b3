// Package evaluation scores predictions against observed values.
package evaluation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "evaluation"

// mapeEpsilon guards the MAPE denominator against zero actuals.
const mapeEpsilon = 1e-8

// Metrics are computed in the target's original units. R2 is NaN when the
// actuals have no variance.
type Metrics struct {
	MAE  float64 `json:"mae" yaml:"mae"`
	RMSE float64 `json:"rmse" yaml:"rmse"`
	R2   float64 `json:"r2" yaml:"r2"`
	MAPE float64 `json:"mape" yaml:"mape"`
}

// Compute returns MAE, RMSE, R² (1 − SSres/SStot) and MAPE in percent.
func Compute(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("length mismatch: %d actual vs %d predicted", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Metrics{}, fmt.Errorf("no observations")
	}
	mean, err := stats.Mean(actual)
	if err != nil {
		return Metrics{}, err
	}
	var absSum, sqSum, pctSum, ssTot float64
	for i, a := range actual {
		d := a - predicted[i]
		absSum += math.Abs(d)
		sqSum += d * d
		pctSum += math.Abs(d) / math.Max(math.Abs(a), mapeEpsilon)
		ssTot += (a - mean) * (a - mean)
	}
	n := float64(len(actual))
	m := Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		MAPE: 100 * pctSum / n,
		R2:   math.NaN(),
	}
	if ssTot > 0 {
		m.R2 = 1 - sqSum/ssTot
	}
	return m, nil
}

// String renders the metrics on one line.
func (m Metrics) String() string {
	return fmt.Sprintf("MAE=%.4g RMSE=%.4g R²=%.4f MAPE=%.2f%%", m.MAE, m.RMSE, m.R2, m.MAPE)
}

// MarshalJSON writes non-finite values (an undefined R²) as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MAE  *float64 `json:"mae"`
		RMSE *float64 `json:"rmse"`
		R2   *float64 `json:"r2"`
		MAPE *float64 `json:"mape"`
	}{finite(m.MAE), finite(m.RMSE), finite(m.R2), finite(m.MAPE)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
