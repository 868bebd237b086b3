package evaluation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	actual := []float64{2, 4, 6, 8}
	pred := []float64{3, 4, 5, 8}
	m, err := Compute(actual, pred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), m.RMSE, 1e-12)
	// SStot = 20, SSres = 2
	assert.InDelta(t, 0.9, m.R2, 1e-12)
	assert.InDelta(t, 100*(0.5+0+1.0/6)/4, m.MAPE, 1e-9)
}

func TestCompute_PerfectFit(t *testing.T) {
	m, err := Compute([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, Metrics{R2: 1}, m)
}

func TestCompute_EdgeCases(t *testing.T) {
	m, err := Compute([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m.R2))
	assert.False(t, math.IsInf(m.MAPE, 0))

	_, err = Compute([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
	_, err = Compute(nil, nil)
	assert.Error(t, err)
}

func TestMetricsJSON_UndefinedR2(t *testing.T) {
	b, err := json.Marshal(Metrics{MAE: 1, RMSE: 2, R2: math.NaN(), MAPE: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mae":1,"rmse":2,"r2":null,"mape":3}`, string(b))
}
