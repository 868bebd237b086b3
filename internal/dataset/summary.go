package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Summary is a markdown-friendly profile of a table, used to pick the target
// and outlier filters before a run.
type Summary struct {
	Name   string
	Rows   int
	Target string
	Cols   []ColumnSummary
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Records outside Q1-1.5·IQR .. Q3+1.5·IQR
	OutliersIQR int
	// Pearson correlation with the target; NaN when undefined or no target
	TargetCorr float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// Summarize profiles t. Kinds are inferred when not set yet. target may be
// empty; otherwise numeric columns report their correlation with it.
func Summarize(t *Table, target string, topN int) *Summary {
	if len(t.Kinds) == 0 {
		t.InferKinds()
	}
	if topN <= 0 {
		topN = 5
	}
	s := &Summary{Name: t.Name, Rows: t.Len()}
	var targetVals []float64
	var targetOK []bool
	if name, ok := t.Lookup(target); ok && t.Kinds[name] == KindNumeric {
		s.Target = name
		targetVals, targetOK = columnWithGaps(t, name)
	}
	for _, col := range t.Columns {
		cs := ColumnSummary{Name: col, Kind: t.Kinds[col], TargetCorr: math.NaN()}
		counts := map[string]int{}
		for _, r := range t.Records {
			v := r[col]
			if v.Missing() {
				cs.Missing++
				continue
			}
			cs.NonNull++
			key := v.Text
			if key == "" {
				key = fmt.Sprint(v.Num)
			}
			counts[key]++
		}
		cs.Unique = len(counts)
		switch cs.Kind {
		case KindNumeric:
			vals, ok := columnWithGaps(t, col)
			present := make([]float64, 0, len(vals))
			for i, v := range vals {
				if ok[i] {
					present = append(present, v)
				}
			}
			describeNumeric(&cs, present)
			if s.Target != "" && col != s.Target {
				var a, b []float64
				for i := range vals {
					if ok[i] && targetOK[i] {
						a = append(a, vals[i])
						b = append(b, targetVals[i])
					}
				}
				if r, err := stats.Correlation(a, b); err == nil {
					cs.TargetCorr = r
				}
			}
		default:
			cs.TopValues = topCounts(counts, topN)
		}
		s.Cols = append(s.Cols, cs)
	}
	return s
}

func columnWithGaps(t *Table, col string) (vals []float64, ok []bool) {
	vals = make([]float64, len(t.Records))
	ok = make([]bool, len(t.Records))
	for i, r := range t.Records {
		if v := r[col]; v.Numeric {
			vals[i], ok[i] = v.Num, true
		}
	}
	return vals, ok
}

func describeNumeric(cs *ColumnSummary, vals []float64) {
	if len(vals) == 0 {
		return
	}
	cs.Min, _ = stats.Min(vals)
	cs.Max, _ = stats.Max(vals)
	cs.Mean, _ = stats.Mean(vals)
	cs.Std, _ = stats.StandardDeviationPopulation(vals)
	if len(vals) < 4 {
		return
	}
	q, err := stats.Quartile(vals)
	if err != nil {
		return
	}
	iqr := q.Q3 - q.Q1
	lo, hi := q.Q1-1.5*iqr, q.Q3+1.5*iqr
	for _, v := range vals {
		if v < lo || v > hi {
			cs.OutliersIQR++
		}
	}
}

func topCounts(counts map[string]int, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, CategoryCount{Value: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Markdown renders the summary in the same bracketed layout as run results.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(s.Cols)))
	if s.Target != "" {
		b.WriteString(fmt.Sprintf("Target: %s\n", s.Target))
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range s.Cols {
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutliersIQR > 0 {
				b.WriteString(fmt.Sprintf("; %d outside 1.5·IQR", c.OutliersIQR))
			}
			if !math.IsNaN(c.TargetCorr) {
				b.WriteString(fmt.Sprintf("; r with %s %.3f", s.Target, c.TargetCorr))
			}
		default:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
