package inference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/rules"
)

func space(t *testing.T) (*features.Space, *dataset.Table) {
	t.Helper()
	csv := "x,y\n0,1\n2.5,2\n5,3\n7.5,4\n10,5\n"
	tbl, err := dataset.ParseCSV(strings.NewReader(csv), dataset.Options{})
	require.NoError(t, err)
	_, err = tbl.Classify("y")
	require.NoError(t, err)
	in, _ := fuzzy.DefaultLabels(5)
	out, _ := fuzzy.DefaultLabels(3)
	s, err := features.Build(tbl, "y", in, out, diag.NewCollector(nil))
	require.NoError(t, err)
	return s, tbl
}

func TestMiddleOfMaximum(t *testing.T) {
	s, _ := space(t)
	d := NewDefuzzifier(s)

	assert.Equal(t, s.TargetBounds.Min, d.MiddleOfMaximum(0, 1))
	assert.Equal(t, s.TargetBounds.Max, d.MiddleOfMaximum(2, 1))
	center := (s.TargetBounds.Min + s.TargetBounds.Max) / 2
	assert.InDelta(t, center, d.MiddleOfMaximum(1, 1), 1e-9)

	// a lower cap widens the plateau, pulling the low label's value inwards
	half := d.MiddleOfMaximum(0, 0.5)
	assert.Greater(t, half, s.TargetBounds.Min)
	assert.Less(t, half, center)
	assert.Equal(t, half, d.MiddleOfMaximum(0, 0.5))
	assert.Len(t, d.cache, 4)
}

func TestFiringStrength(t *testing.T) {
	s, _ := space(t)
	r := rules.Rule{Antecedents: []rules.Antecedent{{Variable: "x", Level: "low"}, {Variable: "x", Level: "medium"}}, Consequent: fuzzy.Low}

	w, err := FiringStrength(s, r, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w, "x=2.5 is fully low")

	w, err = FiringStrength(s, rules.Intercept(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w)
}

func TestBuildDesign(t *testing.T) {
	s, _ := space(t)
	rs := []rules.Rule{
		rules.Intercept(),
		{Antecedents: []rules.Antecedent{{Variable: "x", Level: "verylow"}}, Consequent: fuzzy.Low},
		{Antecedents: []rules.Antecedent{{Variable: "x", Level: "veryhigh"}}, Consequent: fuzzy.High},
	}
	d, err := BuildDesign(s, rs)
	require.NoError(t, err)

	r, c := d.X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, d.Y)
	for i := 0; i < r; i++ {
		assert.Equal(t, 1.0, d.X.At(i, 0))
	}
	assert.Equal(t, s.TargetBounds.Min, d.X.At(0, 1))
	assert.Equal(t, 0.0, d.X.At(1, 1))
	assert.Equal(t, s.TargetBounds.Max, d.X.At(4, 2))
	assert.Equal(t, 0.0, d.X.At(0, 2))
}

func TestBuildDesign_Errors(t *testing.T) {
	s, tbl := space(t)
	_, err := BuildDesign(s, nil)
	assert.ErrorIs(t, err, errs.ErrEmptyMatrix)

	name, ok := s.FeatureName("x", "low")
	require.True(t, ok)
	delete(tbl.Records[2], name)
	rs := []rules.Rule{{Antecedents: []rules.Antecedent{{Variable: "x", Level: "low"}}, Consequent: fuzzy.Low}}
	_, err = BuildDesign(s, rs)
	assert.ErrorIs(t, err, errs.ErrInvalidRecord)

	tbl.Records[3][name] = dataset.Value{Text: "oops"}
	_, err = FiringStrength(s, rs[0], 3)
	assert.ErrorIs(t, err, errs.ErrInvalidRecord)
}
