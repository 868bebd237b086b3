package rules

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
)

// Lists carries the user supplied rule strings.
type Lists struct {
	Whitelist     []string
	Blacklist     []string
	OnlyWhitelist bool
}

// ApplyLists merges whitelist rules into generated and removes blacklisted
// ones. Malformed strings are reported and skipped; a well-formed string that
// names an unknown variable or label fails the whole call.
func ApplyLists(generated []Rule, l Lists, s *features.Space, c *diag.Collector) ([]Rule, error) {
	white, err := parseList(l.Whitelist, "whitelist", s, c)
	if err != nil {
		return nil, err
	}
	black, err := parseList(l.Blacklist, "blacklist", s, c)
	if err != nil {
		return nil, err
	}
	for i := range white {
		white[i].Whitelist = true
	}

	var out []Rule
	if l.OnlyWhitelist {
		out = Dedup(white)
		if len(generated) > 0 {
			c.Debug(Stage, "generated rules replaced by whitelist", "generated", len(generated), "whitelist", len(out))
		}
	} else {
		out = make([]Rule, 0, len(white)+len(generated))
		out = append(out, white...)
		out = append(out, generated...)
		out = Dedup(out)
	}

	if len(black) > 0 {
		banned := make(map[string]struct{}, len(black))
		for _, r := range black {
			banned[r.Key()] = struct{}{}
		}
		kept := out[:0]
		removed := 0
		for _, r := range out {
			if _, ok := banned[r.Key()]; ok {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		out = kept
		if removed > 0 {
			c.Warn(Stage, fmt.Sprintf("removed %d blacklisted rules", removed), "count", removed)
		}
	}
	return out, nil
}

func parseList(items []string, name string, s *features.Space, c *diag.Collector) ([]Rule, error) {
	var out []Rule
	for _, item := range items {
		p, err := Parse(item)
		if err != nil {
			if errors.Is(err, errs.ErrMalformedRule) {
				c.Warn(Stage, "skipped malformed "+name+" rule", "rule", item, "error", err.Error())
				continue
			}
			return nil, err
		}
		r, err := Resolve(p, s)
		if err != nil {
			return nil, fmt.Errorf("%s rule %q: %w", name, item, err)
		}
		out = append(out, r)
	}
	return out, nil
}
