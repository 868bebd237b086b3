package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
)

var (
	ruleRe   = regexp.MustCompile(`(?is)^\s*if\s+(.+?)\s+then\s+(.+)$`)
	andRe    = regexp.MustCompile(`(?i)\s+and(?:\s+|$)`)
	clauseRe = regexp.MustCompile(`(?is)^(.+)\s+is\s+(.+)$`)
)

// Parsed is a syntactically valid rule string whose names are not yet resolved.
type Parsed struct {
	Antecedents []Antecedent
	Target      string
	Consequent  string
}

// Parse reads "If <var> is <label> AND ... then <target> is <label>".
// Keywords are case-insensitive. Syntax problems wrap errs.ErrMalformedRule.
func Parse(s string) (Parsed, error) {
	m := ruleRe.FindStringSubmatch(s)
	if m == nil {
		return Parsed{}, fmt.Errorf("%w: %q: expected \"If <var> is <label> ... then <target> is <label>\"", errs.ErrMalformedRule, s)
	}
	var p Parsed
	for _, clause := range andRe.Split(strings.TrimSpace(m[1]), -1) {
		a, err := parseClause(clause)
		if err != nil {
			return Parsed{}, fmt.Errorf("%w: %q: %v", errs.ErrMalformedRule, s, err)
		}
		p.Antecedents = append(p.Antecedents, Antecedent{Variable: a[0], Level: a[1]})
	}
	c, err := parseClause(m[2])
	if err != nil {
		return Parsed{}, fmt.Errorf("%w: %q: consequent: %v", errs.ErrMalformedRule, s, err)
	}
	p.Target, p.Consequent = c[0], c[1]
	return p, nil
}

func parseClause(s string) ([2]string, error) {
	m := clauseRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return [2]string{}, fmt.Errorf("clause %q lacks \"is\"", strings.TrimSpace(s))
	}
	v, l := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if v == "" || l == "" {
		return [2]string{}, fmt.Errorf("clause %q is incomplete", strings.TrimSpace(s))
	}
	return [2]string{v, l}, nil
}

// Resolve checks a parsed rule against the feature space and returns it with
// canonical variable and level names. Unknown names and invalid combinations
// wrap errs.ErrInvalidRule.
func Resolve(p Parsed, s *features.Space) (Rule, error) {
	if !strings.EqualFold(p.Target, s.Target) {
		return Rule{}, fmt.Errorf("%w: consequent variable %q is not the target %q", errs.ErrInvalidRule, p.Target, s.Target)
	}
	cons := fuzzy.Label(strings.ToLower(p.Consequent))
	if s.OutputIndex(cons) < 0 {
		return Rule{}, fmt.Errorf("%w: output label %q not in %v", errs.ErrInvalidRule, p.Consequent, s.OutputLabels)
	}
	r := Rule{Consequent: cons}
	for _, a := range p.Antecedents {
		v, ok := s.Variable(a.Variable)
		if !ok {
			return Rule{}, fmt.Errorf("%w: unknown variable %q", errs.ErrInvalidRule, a.Variable)
		}
		i := v.LevelIndex(a.Level)
		if i < 0 {
			if v.Kind == dataset.KindNumeric {
				return Rule{}, fmt.Errorf("%w: label %q of %q not in %v", errs.ErrInvalidRule, a.Level, v.Name, v.Levels)
			}
			return Rule{}, fmt.Errorf("%w: category %q of %q not in %v", errs.ErrInvalidRule, a.Level, v.Name, v.Levels)
		}
		r.Antecedents = append(r.Antecedents, Antecedent{Variable: v.Name, Level: v.Levels[i]})
	}
	if err := ValidCombination(r, s); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// ValidCombination enforces the structural constraints on a rule: a
// categorical variable carries a single category and the labels of a numeric
// variable are contiguous.
func ValidCombination(r Rule, s *features.Space) error {
	vars, levels := r.Grouped()
	for _, name := range vars {
		v, ok := s.Variable(name)
		if !ok {
			return fmt.Errorf("%w: unknown variable %q", errs.ErrInvalidRule, name)
		}
		ls := levels[name]
		if len(ls) == 1 {
			continue
		}
		if v.Kind == dataset.KindCategorical {
			return fmt.Errorf("%w: categorical %q assigned %v", errs.ErrInvalidRule, name, ls)
		}
		set := make([]fuzzy.Label, len(ls))
		for i, l := range ls {
			set[i] = fuzzy.Label(l)
		}
		if !fuzzy.Contiguous(set, s.InputLabels) {
			return fmt.Errorf("%w: labels %v of %q are not contiguous", errs.ErrInvalidRule, ls, name)
		}
	}
	return nil
}
