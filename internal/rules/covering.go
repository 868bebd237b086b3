package rules

import (
	"math/rand/v2"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
)

// notUsed marks a variable that is inactive in a covering-array row.
const notUsed = -1

type pair struct {
	a, b slot
}

// Covering builds a covering array greedily: each step draws iterations
// random candidate rows (at most numVars active variables each), keeps the one
// covering the most uncovered (variable, level) pairs and stops when no
// candidate improves coverage. Levels left uncovered afterwards get a row of
// their own. Rows become antecedent sets subject to the same constraints as
// Exhaustive. The seed makes the result deterministic.
func Covering(s *features.Space, numVars, iterations int, seed uint64, c *diag.Collector) []Rule {
	if numVars < 1 {
		numVars = 1
	}
	if iterations < 1 {
		iterations = 1
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	// active levels per variable
	levels := make([][]int, len(s.Variables))
	for vi, v := range s.Variables {
		for li, l := range v.Levels {
			if s.NonEmpty(v.Name, l) {
				levels[vi] = append(levels[vi], li)
			}
		}
	}
	var vars []int
	for vi := range levels {
		if len(levels[vi]) > 0 {
			vars = append(vars, vi)
		}
	}
	if len(vars) == 0 {
		return nil
	}

	singles := map[slot]bool{}
	for _, vi := range vars {
		for _, li := range levels[vi] {
			singles[slot{vi, li}] = true
		}
	}
	pairs := map[pair]bool{}
	if numVars >= 2 {
		for i, va := range vars {
			for _, vb := range vars[i+1:] {
				for _, la := range levels[va] {
					for _, lb := range levels[vb] {
						pairs[pair{slot{va, la}, slot{vb, lb}}] = true
					}
				}
			}
		}
	}
	// deterministic order for seeding candidates
	pending := make([]pair, 0, len(pairs))
	for i, va := range vars {
		for _, vb := range vars[i+1:] {
			for _, la := range levels[va] {
				for _, lb := range levels[vb] {
					p := pair{slot{va, la}, slot{vb, lb}}
					if pairs[p] {
						pending = append(pending, p)
					}
				}
			}
		}
	}

	width := numVars
	if width > len(vars) {
		width = len(vars)
	}
	var rows [][]int
	for len(pending) > 0 {
		var best []int
		bestGain := 0
		for it := 0; it < iterations; it++ {
			seedPair := pending[rng.IntN(len(pending))]
			row := candidateRow(rng, len(s.Variables), vars, levels, width, seedPair)
			if g := rowGain(row, pairs, singles); g > bestGain {
				best, bestGain = row, g
			}
		}
		if bestGain == 0 {
			break
		}
		rows = append(rows, best)
		markCovered(best, pairs, singles)
		kept := pending[:0]
		for _, p := range pending {
			if pairs[p] {
				kept = append(kept, p)
			}
		}
		pending = kept
	}
	for _, vi := range vars {
		for _, li := range levels[vi] {
			if singles[slot{vi, li}] {
				row := emptyRow(len(s.Variables))
				row[vi] = li
				rows = append(rows, row)
				singles[slot{vi, li}] = false
			}
		}
	}

	var out []Rule
	for _, row := range rows {
		combo := make([]slot, 0, width)
		for vi, li := range row {
			if li != notUsed {
				combo = append(combo, slot{vi, li})
			}
		}
		if r, ok := antecedentsOf(s, combo); ok {
			out = append(out, withConsequents(s, r)...)
		}
	}
	out = Dedup(out)
	c.Debug(Stage, "covering array generation done", "rows", len(rows), "rules", len(out), "uncovered_pairs", len(pending))
	return out
}

func emptyRow(n int) []int {
	row := make([]int, n)
	for i := range row {
		row[i] = notUsed
	}
	return row
}

// candidateRow activates the seed pair plus random other variables up to width.
func candidateRow(rng *rand.Rand, n int, vars []int, levels [][]int, width int, seed pair) []int {
	row := emptyRow(n)
	active := 0
	if width >= 2 {
		row[seed.a.v] = seed.a.l
		row[seed.b.v] = seed.b.l
		active = 2
	}
	for _, k := range rng.Perm(len(vars)) {
		if active >= width {
			break
		}
		vi := vars[k]
		if row[vi] != notUsed {
			continue
		}
		row[vi] = levels[vi][rng.IntN(len(levels[vi]))]
		active++
	}
	return row
}

func rowGain(row []int, pairs map[pair]bool, singles map[slot]bool) int {
	g := 0
	for va, la := range row {
		if la == notUsed {
			continue
		}
		if singles[slot{va, la}] {
			g++
		}
		for vb := va + 1; vb < len(row); vb++ {
			if lb := row[vb]; lb != notUsed && pairs[pair{slot{va, la}, slot{vb, lb}}] {
				g++
			}
		}
	}
	return g
}

func markCovered(row []int, pairs map[pair]bool, singles map[slot]bool) {
	for va, la := range row {
		if la == notUsed {
			continue
		}
		singles[slot{va, la}] = false
		for vb := va + 1; vb < len(row); vb++ {
			if lb := row[vb]; lb != notUsed {
				pairs[pair{slot{va, la}, slot{vb, lb}}] = false
			}
		}
	}
}
