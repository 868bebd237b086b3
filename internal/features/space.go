// Package features encodes a preprocessed table into per-record membership
// degrees: one-hot indicators for categorical columns and fuzzy degrees for
// numeric ones. The target is fuzzified separately over the output labels.
package features

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "features"

// Variable is one input column seen as a linguistic variable.
type Variable struct {
	Name string
	Kind dataset.Kind
	// Levels are fuzzy labels for numeric variables, categories otherwise.
	Levels []string
	// Bounds is only meaningful for numeric variables.
	Bounds fuzzy.Bounds
}

// LevelIndex returns the position of level, matching case-insensitively.
func (v *Variable) LevelIndex(level string) int {
	for i, l := range v.Levels {
		if l == level {
			return i
		}
	}
	for i, l := range v.Levels {
		if strings.EqualFold(l, level) {
			return i
		}
	}
	return -1
}

type featureKey struct {
	variable string
	level    string
}

// Space is the encoded dataset every later stage reads from.
type Space struct {
	Target       string
	Variables    []Variable
	InputLabels  []fuzzy.Label
	OutputLabels []fuzzy.Label
	TargetBounds fuzzy.Bounds
	// Universe is the discretized output range and Curves[label][point] the
	// output membership functions evaluated over it.
	Universe []float64
	Curves   [][]float64
	// Y is the standardized target per record.
	Y []float64

	table    *dataset.Table
	names    map[featureKey]string
	varIndex map[string]int
	nonEmpty map[featureKey]bool
	target   [][]float64
	dominant [][]int
	domOut   []int
}

// Build fuzzifies and one-hot encodes t in place. Raw predictor columns are
// replaced by {column}_{level} degree columns; the target column is kept and
// its memberships over out are stored on the Space.
func Build(t *dataset.Table, target string, in, out []fuzzy.Label, c *diag.Collector) (*Space, error) {
	if err := fuzzy.ValidateLabels(in); err != nil {
		return nil, fmt.Errorf("input labels: %w", err)
	}
	if err := fuzzy.ValidateLabels(out); err != nil {
		return nil, fmt.Errorf("output labels: %w", err)
	}
	if t.Kinds[target] != dataset.KindNumeric {
		return nil, fmt.Errorf("%w: %q", errs.ErrNonNumericTarget, target)
	}
	if t.Len() == 0 {
		return nil, errs.ErrEmptyDataset
	}
	bounds := t.NumericBounds()
	s := &Space{
		Target:       target,
		InputLabels:  in,
		OutputLabels: out,
		TargetBounds: bounds[target],
		table:        t,
		names:        map[featureKey]string{},
		varIndex:     map[string]int{},
		nonEmpty:     map[featureKey]bool{},
	}

	sources := append([]string(nil), t.Columns...)
	for _, col := range sources {
		if col == target {
			continue
		}
		var v Variable
		switch t.Kinds[col] {
		case dataset.KindCategorical:
			v = s.encodeCategorical(col)
		case dataset.KindNumeric:
			var err error
			v, err = s.encodeNumeric(col, bounds[col], in)
			if err != nil {
				return nil, err
			}
		default:
			c.Warn(Stage, "column of unknown kind ignored", "column", col)
			t.DropColumn(col)
			continue
		}
		t.DropColumn(col)
		s.varIndex[col] = len(s.Variables)
		s.Variables = append(s.Variables, v)
	}
	for _, v := range s.Variables {
		for _, l := range v.Levels {
			name := s.names[featureKey{v.Name, l}]
			t.Columns = append(t.Columns, name)
			t.Kinds[name] = dataset.KindNumeric
		}
	}
	if len(s.Variables) == 0 {
		c.Warn(Stage, "no predictor columns left after preprocessing")
	}

	y, ok := t.Column(target)
	if !ok {
		return nil, &errs.RecordError{Record: -1, Column: target}
	}
	s.Y = y
	s.target = make([][]float64, len(y))
	s.domOut = make([]int, len(y))
	for i, v := range y {
		deg, err := fuzzy.Memberships(v, s.TargetBounds, out)
		if err != nil {
			return nil, fmt.Errorf("fuzzify target: %w", err)
		}
		s.target[i] = deg
		s.domOut[i] = fuzzy.Dominant(deg)
		for j, d := range deg {
			if d > 0 {
				s.nonEmpty[featureKey{target, string(out[j])}] = true
			}
		}
	}
	s.Universe = fuzzy.Universe(s.TargetBounds, fuzzy.UniverseSize)
	curves, err := fuzzy.Curves(s.Universe, s.TargetBounds, out)
	if err != nil {
		return nil, err
	}
	s.Curves = curves
	s.computeDominant()

	for _, v := range s.Variables {
		for _, l := range v.Levels {
			if !s.nonEmpty[featureKey{v.Name, l}] {
				c.Debug(Stage, "empty fuzzy set", "variable", v.Name, "level", l)
			}
		}
	}
	return s, nil
}

func (s *Space) featureName(col, level string) string {
	name := col + "_" + level
	for i := 2; s.table.HasColumn(name) || s.taken(name); i++ {
		name = fmt.Sprintf("%s_%s_%d", col, level, i)
	}
	s.names[featureKey{col, level}] = name
	return name
}

func (s *Space) taken(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s *Space) encodeCategorical(col string) Variable {
	cats := s.table.Categories(col)
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = s.featureName(col, cat)
	}
	for _, r := range s.table.Records {
		text := r[col].Text
		for i, cat := range cats {
			if text == cat {
				r[names[i]] = dataset.Num(1)
				s.nonEmpty[featureKey{col, cat}] = true
			} else {
				r[names[i]] = dataset.Num(0)
			}
		}
	}
	return Variable{Name: col, Kind: dataset.KindCategorical, Levels: cats}
}

func (s *Space) encodeNumeric(col string, b fuzzy.Bounds, labels []fuzzy.Label) (Variable, error) {
	levels := fuzzy.Strings(labels)
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = s.featureName(col, l)
	}
	for i, r := range s.table.Records {
		v := r[col]
		if !v.Numeric {
			return Variable{}, &errs.RecordError{Record: i, Column: col}
		}
		deg, err := fuzzy.Memberships(v.Num, b, labels)
		if err != nil {
			return Variable{}, fmt.Errorf("fuzzify %q: %w", col, err)
		}
		for j, d := range deg {
			r[names[j]] = dataset.Num(d)
			if d > 0 {
				s.nonEmpty[featureKey{col, levels[j]}] = true
			}
		}
	}
	return Variable{Name: col, Kind: dataset.KindNumeric, Levels: levels, Bounds: b}, nil
}

func (s *Space) computeDominant() {
	n := s.table.Len()
	s.dominant = make([][]int, n)
	for i, r := range s.table.Records {
		row := make([]int, len(s.Variables))
		for vi, v := range s.Variables {
			deg := make([]float64, len(v.Levels))
			for li, l := range v.Levels {
				deg[li] = r[s.names[featureKey{v.Name, l}]].Num
			}
			row[vi] = fuzzy.Dominant(deg)
		}
		s.dominant[i] = row
	}
}

// Records is the number of encoded records.
func (s *Space) Records() int { return len(s.Y) }

// Variable looks a variable up by name, case-insensitively.
func (s *Space) Variable(name string) (*Variable, bool) {
	if i, ok := s.varIndex[name]; ok {
		return &s.Variables[i], true
	}
	for i := range s.Variables {
		if strings.EqualFold(s.Variables[i].Name, name) {
			return &s.Variables[i], true
		}
	}
	return nil, false
}

// FeatureName is the record column holding the degree of (variable, level).
func (s *Space) FeatureName(variable, level string) (string, bool) {
	n, ok := s.names[featureKey{variable, level}]
	return n, ok
}

// Degree reads the degree of record rec in (variable, level). A missing or
// non-numeric value means an earlier stage went wrong and is reported as an
// *errs.RecordError.
func (s *Space) Degree(rec int, variable, level string) (float64, error) {
	name, ok := s.names[featureKey{variable, level}]
	if !ok {
		name = variable + "_" + level
	}
	if rec < 0 || rec >= len(s.table.Records) {
		return 0, &errs.RecordError{Record: rec, Column: name}
	}
	v, ok := s.table.Records[rec][name]
	if !ok || !v.Numeric {
		return 0, &errs.RecordError{Record: rec, Column: name}
	}
	return v.Num, nil
}

// NonEmpty reports whether at least one record has a positive degree in
// (variable, level).
func (s *Space) NonEmpty(variable, level string) bool {
	return s.nonEmpty[featureKey{variable, level}]
}

// TargetNonEmpty reports whether some record belongs to output label i.
func (s *Space) TargetNonEmpty(i int) bool {
	if i < 0 || i >= len(s.OutputLabels) {
		return false
	}
	return s.nonEmpty[featureKey{s.Target, string(s.OutputLabels[i])}]
}

// OutputIndex returns the position of label among the output labels.
func (s *Space) OutputIndex(label fuzzy.Label) int {
	for i, l := range s.OutputLabels {
		if l == label {
			return i
		}
	}
	return -1
}

// TargetDegrees are the output-label memberships of record rec.
func (s *Space) TargetDegrees(rec int) []float64 { return s.target[rec] }

// DominantLevel is the index into Variables[v].Levels of the level record rec
// belongs to most, or -1 when every degree is 0.
func (s *Space) DominantLevel(rec, v int) int { return s.dominant[rec][v] }

// DominantOutput is the index of the output label record rec belongs to most.
func (s *Space) DominantOutput(rec int) int { return s.domOut[rec] }

// VariableIndex returns the position of a variable in Variables.
func (s *Space) VariableIndex(name string) int {
	if i, ok := s.varIndex[name]; ok {
		return i
	}
	return -1
}
