// Package rules models IF-THEN fuzzy rules and synthesizes candidate rule sets.
package rules

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
)

// Stage is the diagnostics stage name used by this package.
const Stage = "rules"

// InterceptKey is the canonical key of the intercept rule.
const InterceptKey = "<intercept>"

// Antecedent is one "variable is level" clause.
type Antecedent struct {
	Variable string `json:"variable" yaml:"variable"`
	Level    string `json:"level" yaml:"level"`
}

// Rule is the immutable part of a rule. Statistics and coefficients live in
// separate records keyed by Key or by column index.
type Rule struct {
	Antecedents []Antecedent `json:"antecedents" yaml:"antecedents"`
	Consequent  fuzzy.Label  `json:"consequent" yaml:"consequent"`
	Whitelist   bool         `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Intercept   bool         `json:"intercept,omitempty" yaml:"intercept,omitempty"`
}

// Intercept returns the rule with no antecedents standing for the constant term.
func Intercept() Rule { return Rule{Intercept: true} }

// Key is the canonical identity of the rule. Antecedent order and letter case
// do not matter; duplicate clauses collapse.
func (r Rule) Key() string {
	if r.Intercept {
		return InterceptKey
	}
	parts := make([]string, 0, len(r.Antecedents))
	seen := map[string]struct{}{}
	for _, a := range r.Antecedents {
		p := strings.ToLower(a.Variable) + "=" + strings.ToLower(a.Level)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		parts = append(parts, p)
	}
	sort.Strings(parts)
	return strings.Join(parts, "&") + "=>" + strings.ToLower(string(r.Consequent))
}

// Title renders the rule for people.
func (r Rule) Title(target string) string {
	if r.Intercept {
		return "Intercept"
	}
	var b strings.Builder
	b.WriteString("If ")
	for i, a := range r.Antecedents {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(a.Variable)
		b.WriteString(" is ")
		b.WriteString(a.Level)
	}
	b.WriteString(" then ")
	b.WriteString(target)
	b.WriteString(" is ")
	b.WriteString(string(r.Consequent))
	return b.String()
}

// Len is the number of distinct antecedents.
func (r Rule) Len() int {
	seen := map[Antecedent]struct{}{}
	for _, a := range r.Antecedents {
		seen[a] = struct{}{}
	}
	return len(seen)
}

// Grouped returns the levels of each variable in first-appearance order.
func (r Rule) Grouped() (vars []string, levels map[string][]string) {
	levels = map[string][]string{}
	for _, a := range r.Antecedents {
		if _, ok := levels[a.Variable]; !ok {
			vars = append(vars, a.Variable)
		}
		if !containsString(levels[a.Variable], a.Level) {
			levels[a.Variable] = append(levels[a.Variable], a.Level)
		}
	}
	return vars, levels
}

func containsString(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// Dedup drops later rules whose key was already seen.
func Dedup(rs []Rule) []Rule {
	seen := make(map[string]struct{}, len(rs))
	out := rs[:0:0]
	for _, r := range rs {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
