package fuzzy

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

// Label names one linguistic set of a numeric variable.
type Label string

const (
	VeryLow    Label = "verylow"
	Low        Label = "low"
	MediumLow  Label = "mediumlow"
	Medium     Label = "medium"
	MediumHigh Label = "mediumhigh"
	High       Label = "high"
	VeryHigh   Label = "veryhigh"
)

// order is the fixed total order every configured label sequence must respect.
var order = []Label{VeryLow, Low, MediumLow, Medium, MediumHigh, High, VeryHigh}

var rank = func() map[Label]int {
	m := make(map[Label]int, len(order))
	for i, l := range order {
		m[l] = i
	}
	return m
}()

var defaults = map[int][]Label{
	3: {Low, Medium, High},
	5: {VeryLow, Low, Medium, High, VeryHigh},
	6: {VeryLow, Low, MediumLow, MediumHigh, High, VeryHigh},
	7: {VeryLow, Low, MediumLow, Medium, MediumHigh, High, VeryHigh},
}

// SupportedArity reports whether n linguistic sets can be built.
func SupportedArity(n int) bool {
	_, ok := defaults[n]
	return ok
}

// DefaultLabels returns the canonical sequence for n sets.
func DefaultLabels(n int) ([]Label, error) {
	l, ok := defaults[n]
	if !ok {
		return nil, errs.Invalidf("unsupported number of fuzzy sets %d (use 3, 5, 6 or 7)", n)
	}
	out := make([]Label, len(l))
	copy(out, l)
	return out, nil
}

// Rank is the position of l in the fixed order, or -1 if l is unknown.
func Rank(l Label) int {
	r, ok := rank[l]
	if !ok {
		return -1
	}
	return r
}

// ParseLabels normalizes and validates a configured label sequence.
func ParseLabels(raw []string) ([]Label, error) {
	out := make([]Label, 0, len(raw))
	for _, s := range raw {
		out = append(out, Label(strings.ToLower(strings.TrimSpace(s))))
	}
	if err := ValidateLabels(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateLabels checks arity, vocabulary and ordering.
func ValidateLabels(labels []Label) error {
	if !SupportedArity(len(labels)) {
		return errs.Invalidf("unsupported number of fuzzy sets %d (use 3, 5, 6 or 7)", len(labels))
	}
	prev := -1
	for _, l := range labels {
		r := Rank(l)
		if r < 0 {
			return errs.Invalidf("unknown fuzzy label %q", l)
		}
		if r <= prev {
			return errs.Invalidf("fuzzy labels must follow the order %v", order)
		}
		prev = r
	}
	return nil
}

// Contains reports whether l is one of labels.
func Contains(labels []Label, l Label) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// Contiguous reports whether the distinct members of set occupy adjacent
// positions of vocabulary. Members outside vocabulary make the set non-contiguous.
func Contiguous(set []Label, vocabulary []Label) bool {
	pos := make(map[Label]int, len(vocabulary))
	for i, l := range vocabulary {
		pos[l] = i
	}
	seen := map[int]struct{}{}
	for _, l := range set {
		i, ok := pos[l]
		if !ok {
			return false
		}
		seen[i] = struct{}{}
	}
	if len(seen) <= 1 {
		return true
	}
	idx := make([]int, 0, len(seen))
	for i := range seen {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx[len(idx)-1]-idx[0] == len(idx)-1
}

// Strings converts labels to plain strings.
func Strings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
