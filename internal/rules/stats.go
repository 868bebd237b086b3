package rules

import (
	"sort"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
)

// Stats is the mutable statistics record of one rule.
type Stats struct {
	Support  float64 `json:"support" yaml:"support"`
	Leverage float64 `json:"leverage" yaml:"leverage"`
	Priority float64 `json:"priority" yaml:"priority"`
}

// Score computes support, leverage and priority for every rule. Each record
// counts towards the single level it belongs to most in every variable (and
// the output label it belongs to most); an antecedent on a variable matches
// when that level is among the rule's levels for the variable. The intercept
// gets zero statistics.
func Score(rs []Rule, s *features.Space, w config.PriorityWeights) []Stats {
	out := make([]Stats, len(rs))
	n := s.Records()
	if n == 0 {
		return out
	}
	for i, r := range rs {
		if r.Intercept {
			continue
		}
		vars, levels := r.Grouped()
		type cond struct {
			vi  int
			set map[int]bool
		}
		conds := make([]cond, 0, len(vars))
		valid := true
		for _, name := range vars {
			vi := s.VariableIndex(name)
			if vi < 0 {
				valid = false
				break
			}
			set := map[int]bool{}
			for _, l := range levels[name] {
				set[s.Variables[vi].LevelIndex(l)] = true
			}
			conds = append(conds, cond{vi, set})
		}
		cons := s.OutputIndex(r.Consequent)

		var both, ante, consOnly int
		for rec := 0; rec < n && valid; rec++ {
			a := true
			for _, cd := range conds {
				if !cd.set[s.DominantLevel(rec, cd.vi)] {
					a = false
					break
				}
			}
			k := cons >= 0 && s.DominantOutput(rec) == cons
			if a {
				ante++
			}
			if k {
				consOnly++
			}
			if a && k {
				both++
			}
		}
		st := Stats{}
		if valid {
			fn := float64(n)
			st.Support = float64(both) / fn
			st.Leverage = st.Support - (float64(ante)/fn)*(float64(consOnly)/fn)
		}
		st.Priority = w.Support*st.Support + w.Leverage*st.Leverage
		if k := r.Len(); k > 0 {
			st.Priority += w.NumAntecedents / float64(k)
		}
		if r.Whitelist {
			st.Priority += w.WhitelistBoolean
		}
		out[i] = st
	}
	return out
}

// SortByPriority returns rule indices ordered for reporting: the intercept
// first, then descending priority with the canonical key breaking ties.
func SortByPriority(rs []Rule, st []Stats) []int {
	idx := make([]int, len(rs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := rs[idx[a]], rs[idx[b]]
		if ra.Intercept != rb.Intercept {
			return ra.Intercept
		}
		pa, pb := st[idx[a]].Priority, st[idx[b]].Priority
		if pa != pb {
			return pa > pb
		}
		return ra.Key() < rb.Key()
	})
	return idx
}
