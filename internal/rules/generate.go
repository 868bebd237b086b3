package rules

import (
	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
)

// slot is one (variable, level) choice inside an antecedent set.
type slot struct {
	v, l int
}

// Exhaustive enumerates every antecedent set of 1..numVars clauses. Numeric
// variables may appear several times with distinct contiguous labels;
// categorical variables appear at most once. Each set whose levels are all
// non-empty yields one rule per non-empty output label.
func Exhaustive(s *features.Space, numVars int, c *diag.Collector) []Rule {
	if numVars < 1 {
		numVars = 1
	}
	var out []Rule
	var combo []slot
	var walk func(start int)
	walk = func(start int) {
		if len(combo) > 0 {
			if r, ok := antecedentsOf(s, combo); ok {
				out = append(out, withConsequents(s, r)...)
			}
		}
		if len(combo) == numVars {
			return
		}
		for vi := start; vi < len(s.Variables); vi++ {
			v := &s.Variables[vi]
			firstLevel := 0
			if n := len(combo); n > 0 && combo[n-1].v == vi {
				if v.Kind == dataset.KindCategorical {
					continue
				}
				// levels of a repeated variable strictly increase; only the
				// label right after the previous one keeps the set contiguous
				firstLevel = combo[n-1].l + 1
				if firstLevel >= len(v.Levels) {
					continue
				}
				if !s.NonEmpty(v.Name, v.Levels[firstLevel]) {
					continue
				}
				combo = append(combo, slot{vi, firstLevel})
				walk(vi)
				combo = combo[:len(combo)-1]
				continue
			}
			for li := firstLevel; li < len(v.Levels); li++ {
				if !s.NonEmpty(v.Name, v.Levels[li]) {
					continue
				}
				combo = append(combo, slot{vi, li})
				walk(vi)
				combo = combo[:len(combo)-1]
			}
		}
	}
	walk(0)
	out = Dedup(out)
	c.Debug(Stage, "exhaustive generation done", "rules", len(out), "num_vars", numVars)
	return out
}

// antecedentsOf turns slots into a rule without consequent. ok is false when
// the set breaks a validity or non-emptiness constraint.
func antecedentsOf(s *features.Space, combo []slot) (Rule, bool) {
	r := Rule{Antecedents: make([]Antecedent, 0, len(combo))}
	for _, sl := range combo {
		v := &s.Variables[sl.v]
		level := v.Levels[sl.l]
		if !s.NonEmpty(v.Name, level) {
			return Rule{}, false
		}
		r.Antecedents = append(r.Antecedents, Antecedent{Variable: v.Name, Level: level})
	}
	if ValidCombination(r, s) != nil {
		return Rule{}, false
	}
	return r, true
}

func withConsequents(s *features.Space, base Rule) []Rule {
	out := make([]Rule, 0, len(s.OutputLabels))
	for i, l := range s.OutputLabels {
		if !s.TargetNonEmpty(i) {
			continue
		}
		r := base
		r.Antecedents = append([]Antecedent(nil), base.Antecedents...)
		r.Consequent = l
		out = append(out, r)
	}
	return out
}
