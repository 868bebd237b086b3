package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
)

const fixture = `x,color,y
0,r,1
2.5,g,2
5,r,3
7.5,g,4
10,r,5
0,g,1
2.5,r,2
5,g,3
7.5,r,4
10,g,5
`

func testSpace(t *testing.T) *features.Space {
	t.Helper()
	tbl, err := dataset.ParseCSV(strings.NewReader(fixture), dataset.Options{})
	require.NoError(t, err)
	target, err := tbl.Classify("y")
	require.NoError(t, err)
	in, _ := fuzzy.DefaultLabels(5)
	out, _ := fuzzy.DefaultLabels(3)
	s, err := features.Build(tbl, target, in, out, diag.NewCollector(nil))
	require.NoError(t, err)
	return s
}

func TestRuleKeyAndTitle(t *testing.T) {
	a := Rule{Antecedents: []Antecedent{{"x", "low"}, {"Color", "r"}}, Consequent: fuzzy.High}
	b := Rule{Antecedents: []Antecedent{{"color", "R"}, {"x", "low"}, {"x", "low"}}, Consequent: fuzzy.High}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Rule{Antecedents: a.Antecedents, Consequent: fuzzy.Low}.Key())
	assert.Equal(t, "If x is low AND Color is r then y is high", a.Title("y"))
	assert.Equal(t, 2, b.Len())

	assert.Equal(t, "Intercept", Intercept().Title("y"))
	assert.Equal(t, InterceptKey, Intercept().Key())
}

func TestParse(t *testing.T) {
	p, err := Parse("IF Temp (C) is High and x is low THEN y IS medium")
	require.NoError(t, err)
	assert.Equal(t, []Antecedent{{"Temp (C)", "High"}, {"x", "low"}}, p.Antecedents)
	assert.Equal(t, "y", p.Target)
	assert.Equal(t, "medium", p.Consequent)

	p, err = Parse("If city is New York then y is low")
	require.NoError(t, err)
	assert.Equal(t, "New York", p.Antecedents[0].Level)

	for _, bad := range []string{
		"",
		"x is low then y is high",
		"If x is low",
		"If x low then y is high",
		"If x is low AND then y is high",
		"If x is low then y",
	} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, errs.ErrMalformedRule, "input %q", bad)
	}
}

func TestResolve(t *testing.T) {
	s := testSpace(t)

	p, _ := Parse("if X is LOW and COLOR is r then Y is HIGH")
	r, err := Resolve(p, s)
	require.NoError(t, err)
	assert.Equal(t, []Antecedent{{"x", "low"}, {"color", "r"}}, r.Antecedents)
	assert.Equal(t, fuzzy.High, r.Consequent)

	for _, bad := range []string{
		"If x is mediumlow then y is low",
		"If z is low then y is low",
		"If x is low then other is low",
		"If x is low then y is veryhigh",
		"If color is blue then y is low",
		"If color is r AND color is g then y is low",
		"If x is low AND x is high then y is low",
	} {
		p, err := Parse(bad)
		require.NoError(t, err, bad)
		_, err = Resolve(p, s)
		assert.ErrorIs(t, err, errs.ErrInvalidRule, "input %q", bad)
	}

	p, _ = Parse("If x is low AND x is medium then y is low")
	_, err = Resolve(p, s)
	assert.NoError(t, err)
}

func TestExhaustive(t *testing.T) {
	s := testSpace(t)

	one := Exhaustive(s, 1, nil)
	assert.Len(t, one, 7*3)
	for _, r := range one {
		assert.Len(t, r.Antecedents, 1)
	}

	two := Exhaustive(s, 2, nil)
	// 7 single sets, 4 contiguous x pairs, 10 x/color pairs
	assert.Len(t, two, (7+4+10)*3)
	keys := map[string]bool{}
	for _, r := range two {
		require.NoError(t, ValidCombination(r, s), r.Title("y"))
		assert.False(t, keys[r.Key()], "duplicate %s", r.Key())
		keys[r.Key()] = true
	}
	assert.True(t, keys[Rule{Antecedents: []Antecedent{{"x", "low"}, {"x", "medium"}}, Consequent: fuzzy.Low}.Key()])
	assert.False(t, keys[Rule{Antecedents: []Antecedent{{"x", "low"}, {"x", "high"}}, Consequent: fuzzy.Low}.Key()])
}

func TestExhaustive_SkipsEmptyLevels(t *testing.T) {
	tbl, err := dataset.ParseCSV(strings.NewReader("x,y\n0,1\n10,2\n0,3\n"), dataset.Options{})
	require.NoError(t, err)
	_, err = tbl.Classify("y")
	require.NoError(t, err)
	labels, _ := fuzzy.DefaultLabels(3)
	s, err := features.Build(tbl, "y", labels, labels, diag.NewCollector(nil))
	require.NoError(t, err)

	rs := Exhaustive(s, 2, nil)
	for _, r := range rs {
		for _, a := range r.Antecedents {
			assert.NotEqual(t, "medium", a.Level)
		}
	}
	// x low, x high; pairs low/medium and medium/high need the empty medium
	assert.Len(t, rs, 2*3)
}

func TestCovering(t *testing.T) {
	s := testSpace(t)
	a := Covering(s, 2, 20, 7, nil)
	b := Covering(s, 2, 20, 7, nil)
	require.NotEmpty(t, a)
	assert.Equal(t, a, b, "same seed must give the same rules")

	levels := map[string]bool{}
	for _, r := range a {
		require.NoError(t, ValidCombination(r, s))
		assert.LessOrEqual(t, r.Len(), 2)
		for _, ant := range r.Antecedents {
			levels[ant.Variable+"="+ant.Level] = true
		}
	}
	for _, v := range s.Variables {
		for _, l := range v.Levels {
			assert.True(t, levels[v.Name+"="+l], "level %s=%s not covered", v.Name, l)
		}
	}
	// pairwise coverage needs far fewer rules than the full enumeration
	assert.Less(t, len(a), len(Exhaustive(s, 2, nil)))

	single := Covering(s, 1, 5, 1, nil)
	assert.Len(t, single, 7*3)
}

func TestApplyLists(t *testing.T) {
	s := testSpace(t)
	gen := Exhaustive(s, 1, nil)
	c := diag.NewCollector(nil)

	out, err := ApplyLists(gen, Lists{
		Whitelist: []string{"If x is medium then y is high", "x is low"},
		Blacklist: []string{"if X is VERYLOW then Y is LOW"},
	}, s, c)
	require.NoError(t, err)
	assert.Len(t, out, len(gen)-1)
	assert.True(t, out[0].Whitelist)
	assert.Equal(t, "If x is medium then y is high", out[0].Title("y"))
	for _, r := range out[1:] {
		assert.False(t, r.Whitelist)
	}
	assert.Len(t, c.Stage(Stage), 2, "one malformed rule and one blacklist removal")

	only, err := ApplyLists(gen, Lists{
		Whitelist:     []string{"If x is medium then y is high", "If x is medium then y is high"},
		OnlyWhitelist: true,
	}, s, diag.NewCollector(nil))
	require.NoError(t, err)
	assert.Len(t, only, 1)

	_, err = ApplyLists(gen, Lists{Whitelist: []string{"If x is mediumlow then y is low"}}, s, diag.NewCollector(nil))
	assert.ErrorIs(t, err, errs.ErrInvalidRule)
}

func TestScore(t *testing.T) {
	s := testSpace(t)
	rs := []Rule{
		Intercept(),
		{Antecedents: []Antecedent{{"x", "verylow"}}, Consequent: fuzzy.Low},
		{Antecedents: []Antecedent{{"x", "veryhigh"}}, Consequent: fuzzy.Low},
		{Antecedents: []Antecedent{{"x", "verylow"}, {"x", "low"}}, Consequent: fuzzy.Low, Whitelist: true},
	}
	w := config.DefaultPipeline().PriorityWeights
	st := Score(rs, s, w)

	assert.Equal(t, Stats{}, st[0])

	// x=0 on records 0 and 5, both with y=1; y is dominantly low on 4 records
	assert.InDelta(t, 0.2, st[1].Support, 1e-12)
	assert.InDelta(t, 0.2-0.2*0.4, st[1].Leverage, 1e-12)
	assert.InDelta(t, 0.2+0.5+0.12, st[1].Priority, 1e-12)

	assert.Equal(t, 0.0, st[2].Support)
	assert.InDelta(t, -0.2*0.4, st[2].Leverage, 1e-12)

	// dominant x level in {verylow, low} on records with x=0 and x=2.5
	assert.InDelta(t, 0.4, st[3].Support, 1e-12)
	assert.InDelta(t, 0.4-0.4*0.4, st[3].Leverage, 1e-12)
	assert.InDelta(t, 0.4+0.25+0.24+1, st[3].Priority, 1e-12)

	order := SortByPriority(rs, st)
	assert.Equal(t, []int{0, 3, 1, 2}, order)
}
