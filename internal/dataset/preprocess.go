package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "preprocessing"

// MissingCategory replaces empty cells of categorical columns.
const MissingCategory = "missing"

// InferKinds sets the kind of every column. A column is numeric when it has at
// least one value and every non-empty value parses as a number.
func (t *Table) InferKinds() {
	for _, col := range t.Columns {
		kind, seen := KindNumeric, false
		for _, r := range t.Records {
			v := r[col]
			if v.Missing() {
				continue
			}
			seen = true
			if !v.Numeric {
				kind = KindCategorical
				break
			}
		}
		if !seen {
			kind = KindCategorical
		}
		t.Kinds[col] = kind
	}
}

// Classify infers column kinds and resolves the target name
// (case-insensitively). The target must be numeric. Categorical cells are
// normalized to text, empty ones to MissingCategory.
func (t *Table) Classify(target string) (string, error) {
	name, ok := t.Lookup(target)
	if !ok {
		return "", errs.Invalidf("target variable %q not found (columns: %v)", target, t.Columns)
	}
	t.InferKinds()
	if t.Kinds[name] != KindNumeric {
		return "", fmt.Errorf("%w: %q", errs.ErrNonNumericTarget, name)
	}
	for _, col := range t.ColumnsOfKind(KindCategorical) {
		for _, r := range t.Records {
			v := r[col]
			if v.Missing() {
				r[col] = Value{Text: MissingCategory}
			} else if v.Numeric {
				// categorical columns compare by text only
				r[col] = Value{Text: v.Text}
			}
		}
	}
	return name, nil
}

// DropIncomplete removes records lacking a value in any numeric column and
// returns how many were dropped.
func (t *Table) DropIncomplete(c *diag.Collector) int {
	numeric := t.ColumnsOfKind(KindNumeric)
	kept := t.Records[:0]
	dropped := 0
	for _, r := range t.Records {
		ok := true
		for _, col := range numeric {
			if v := r[col]; !v.Numeric {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, r)
		} else {
			dropped++
		}
	}
	t.Records = kept
	if dropped > 0 {
		c.Warn(Stage, "removed records with missing numeric values", "count", dropped)
	}
	return dropped
}

// Scaler maps the target to zero mean and unit population variance and back.
type Scaler struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// FitScaler computes mean and population standard deviation. A constant
// column cannot be standardized.
func FitScaler(vals []float64) (Scaler, error) {
	mean, err := stats.Mean(vals)
	if err != nil {
		return Scaler{}, fmt.Errorf("%w: %v", errs.ErrEmptyDataset, err)
	}
	std, err := stats.StandardDeviationPopulation(vals)
	if err != nil {
		return Scaler{}, fmt.Errorf("%w: %v", errs.ErrEmptyDataset, err)
	}
	if std == 0 || math.IsNaN(std) {
		return Scaler{}, fmt.Errorf("%w: zero variance", errs.ErrTargetEliminated)
	}
	return Scaler{Mean: mean, Std: std}, nil
}

// Standardize maps v into standardized units.
func (s Scaler) Standardize(v float64) float64 { return (v - s.Mean) / s.Std }

// Destandardize is the inverse of Standardize.
func (s Scaler) Destandardize(v float64) float64 { return v*s.Std + s.Mean }

// DestandardizeAll applies Destandardize to a copy of vals.
func (s Scaler) DestandardizeAll(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = s.Destandardize(v)
	}
	return out
}

// StandardizeColumn fits a scaler on col and rewrites the column in place.
func (t *Table) StandardizeColumn(col string) (Scaler, error) {
	vals, ok := t.Column(col)
	if !ok {
		return Scaler{}, fmt.Errorf("%w: %q", errs.ErrNonNumericTarget, col)
	}
	sc, err := FitScaler(vals)
	if err != nil {
		return Scaler{}, fmt.Errorf("standardize %q: %w", col, err)
	}
	for _, r := range t.Records {
		v := r[col]
		v.Num = sc.Standardize(v.Num)
		r[col] = v
	}
	return sc, nil
}

// FilterOutliers drops every record rejected by at least one filter. Each
// filter is evaluated against the same record set, so counts are per column
// and overlapping rejections are counted once in the total. Bounds on the
// target are compared in original units using sc.
func (t *Table) FilterOutliers(filters map[string]config.OutlierFilter, target string, sc Scaler, c *diag.Collector) error {
	if len(filters) == 0 {
		return nil
	}
	names := make([]string, 0, len(filters))
	for k := range filters {
		names = append(names, k)
	}
	sort.Strings(names)

	drop := make([]bool, len(t.Records))
	for _, key := range names {
		f := filters[key]
		col, ok := t.Lookup(key)
		if !ok {
			c.Warn(Stage, "outlier filter references unknown column", "column", key)
			continue
		}
		if t.Kinds[col] != KindNumeric {
			c.Warn(Stage, "outlier filter ignored on non-numeric column", "column", col)
			continue
		}
		vals, _ := t.Column(col)
		if col == target {
			vals = sc.DestandardizeAll(vals)
		}
		lo, hi, ok := outlierRange(f, vals)
		if !ok {
			c.Warn(Stage, "too few records for IQR filter", "column", col, "records", len(vals))
			continue
		}
		n := 0
		for i, v := range vals {
			if v < lo || v > hi {
				drop[i] = true
				n++
			}
		}
		if n > 0 {
			kv := []any{"column", col, "method", f.Method, "count", n}
			if !math.IsInf(lo, 0) {
				kv = append(kv, "min", lo)
			}
			if !math.IsInf(hi, 0) {
				kv = append(kv, "max", hi)
			}
			c.Warn(Stage, fmt.Sprintf("removed %d outlier records", n), kv...)
		}
	}

	kept := t.Records[:0]
	removed := 0
	for i, r := range t.Records {
		if drop[i] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.Records = kept
	if removed > 0 {
		c.Debug(Stage, "outlier filtering done", "removed", removed, "remaining", len(kept))
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: every record was removed by outlier filters", errs.ErrEmptyDataset)
	}
	return nil
}

func outlierRange(f config.OutlierFilter, vals []float64) (lo, hi float64, ok bool) {
	switch f.Method {
	case config.OutlierIQR:
		if len(vals) < 4 {
			return 0, 0, false
		}
		q, err := stats.Quartile(vals)
		if err != nil {
			return 0, 0, false
		}
		iqr := q.Q3 - q.Q1
		return q.Q1 - f.Multiplier*iqr, q.Q3 + f.Multiplier*iqr, true
	default:
		lo, hi = math.Inf(-1), math.Inf(1)
		if f.Min != nil {
			lo = *f.Min
		}
		if f.Max != nil {
			hi = *f.Max
		}
		return lo, hi, true
	}
}

// FilterLowVariance inspects the population variance of each numeric column.
// Columns below threshold are dropped when remove is set, otherwise only
// reported. The target is never dropped: that case is fatal. The target is
// compared in original units using sc.
func (t *Table) FilterLowVariance(threshold float64, remove bool, target string, sc Scaler, c *diag.Collector) error {
	if threshold <= 0 {
		return nil
	}
	for _, col := range t.ColumnsOfKind(KindNumeric) {
		vals, _ := t.Column(col)
		v, err := stats.PopulationVariance(vals)
		if col == target {
			v *= sc.Std * sc.Std
		}
		if err != nil || v >= threshold {
			continue
		}
		if !remove {
			c.Warn(Stage, "low variance column kept", "column", col, "variance", v)
			continue
		}
		if col == target {
			return fmt.Errorf("%w: %q has variance %g below %g", errs.ErrTargetEliminated, col, v, threshold)
		}
		t.DropColumn(col)
		c.Warn(Stage, "low variance column removed", "column", col, "variance", v)
	}
	return nil
}

// NumericBounds returns the observed range of each numeric column.
func (t *Table) NumericBounds() map[string]fuzzy.Bounds {
	out := make(map[string]fuzzy.Bounds)
	for _, col := range t.ColumnsOfKind(KindNumeric) {
		vals, ok := t.Column(col)
		if !ok || len(vals) == 0 {
			continue
		}
		mn, _ := stats.Min(vals)
		mx, _ := stats.Max(vals)
		out[col] = fuzzy.Bounds{Min: mn, Max: mx}
	}
	return out
}
