package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FUZZYREG_OUTPUT_FORMAT", "json")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.OutputFormat)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 4, c.BatchConcurrency)
	assert.Equal(t, []string{"low", "medium", "high"}, c.Pipeline.NumericalFuzzification)
	assert.Equal(t, StrategyExhaustive, c.Pipeline.Generation.Strategy)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	c := &Global{OutputFormat: "json", LogLevel: "debug", BatchConcurrency: 2, Pipeline: DefaultPipeline()}
	c.Pipeline.TargetVariable = "price"
	c.Pipeline.NumVars = 3
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", got.OutputFormat)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, 2, got.BatchConcurrency)
	assert.Equal(t, "price", got.Pipeline.TargetVariable)
	assert.Equal(t, 3, got.Pipeline.NumVars)
	assert.InDelta(t, 0.001, got.Pipeline.Lasso.Lambda, 1e-12)
}

func TestLoadPipeline_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yml := `target_variable: price
num_vars: 1
numerical_fuzzification: [verylow, low, medium, high, veryhigh]
lasso:
  lambda: 0.5
outlier_filters:
  area:
    method: iqr
    multiplier: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	p, err := LoadPipeline(path, nil)
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, "price", p.TargetVariable)
	assert.Equal(t, 1, p.NumVars)
	assert.Len(t, p.InputLabels(), 5)
	assert.Len(t, p.OutputLabels(), 3)
	assert.InDelta(t, 0.5, p.Lasso.Lambda, 1e-12)
	assert.Equal(t, 1000, p.Lasso.MaxIterations)
	require.Contains(t, p.OutlierFilters, "area")
	assert.Equal(t, OutlierIQR, p.OutlierFilters["area"].Method)
	assert.InDelta(t, 3, p.OutlierFilters["area"].Multiplier, 1e-12)
}

func TestLoadPipeline_JSONOverBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"decimal": ",", "delimiter": ";"}`), 0o644))

	base := DefaultPipeline()
	base.TargetVariable = "y"
	p, err := LoadPipeline(path, &base)
	require.NoError(t, err)
	assert.Equal(t, "y", p.TargetVariable)
	assert.Equal(t, ';', p.DelimiterRune())
	assert.Equal(t, ',', p.DecimalRune())

	_, err = LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestDefaultPipeline_Validates(t *testing.T) {
	p := DefaultPipeline()
	p.TargetVariable = "y"
	require.NotPanics(t, func() { _ = p.Validate() })
	require.NoError(t, p.Validate())

	p.Delimiter, p.Decimal = ";", ","
	require.NoError(t, p.Validate())

	p.Decimal = "_"
	assert.ErrorIs(t, p.Validate(), errs.ErrInvalidConfiguration)
}

func TestPipelineValidate(t *testing.T) {
	valid := func() Pipeline {
		p := DefaultPipeline()
		p.TargetVariable = "y"
		return p
	}
	p := valid()
	require.NoError(t, p.Validate())

	lo, hi := 5.0, 1.0
	cases := map[string]func(p *Pipeline){
		"missing target":      func(p *Pipeline) { p.TargetVariable = "" },
		"label arity":         func(p *Pipeline) { p.NumericalFuzzification = []string{"low", "high"} },
		"label order":         func(p *Pipeline) { p.NumericalDefuzzification = []string{"high", "medium", "low"} },
		"unknown strategy":    func(p *Pipeline) { p.Generation.Strategy = "random" },
		"zero num vars":       func(p *Pipeline) { p.NumVars = 0 },
		"wide delimiter":      func(p *Pipeline) { p.Delimiter = ";;" },
		"same separators":     func(p *Pipeline) { p.Delimiter, p.Decimal = ",", "," },
		"significance":        func(p *Pipeline) { p.SignificanceLevel = 1 },
		"inverted bounds":     func(p *Pipeline) { p.OutlierFilters = map[string]OutlierFilter{"x": {Method: OutlierBounds, Min: &lo, Max: &hi}} },
		"unknown filter type": func(p *Pipeline) { p.OutlierFilters = map[string]OutlierFilter{"x": {Method: "zscore"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), errs.ErrInvalidConfiguration)
		})
	}

	var nilPipeline *Pipeline
	assert.ErrorIs(t, nilPipeline.Validate(), errs.ErrInvalidConfiguration)
}

func TestPipeline_TabDelimiter(t *testing.T) {
	p := DefaultPipeline()
	p.TargetVariable = "y"
	p.Delimiter = "tab"
	require.NoError(t, p.Validate())
	assert.Equal(t, '\t', p.DelimiterRune())
}

func TestMarshalPipeline(t *testing.T) {
	p := DefaultPipeline()
	p.TargetVariable = "price"
	b, err := MarshalPipeline(&p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "target_variable: price")
	assert.Contains(t, string(b), "strategy: exhaustive")
}
