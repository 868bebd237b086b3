package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/evaluation"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/regression"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/rules"
)

// Status tells what happened to a rule's column.
type Status string

const (
	// StatusCandidate marks rules of a run that stopped before regression.
	StatusCandidate Status = "candidate"
	// StatusActive rules carry a fitted coefficient.
	StatusActive Status = "active"
	// StatusRemoved rules reached regression but were filtered or zeroed there.
	StatusRemoved Status = "removed"
	// StatusDuplicate rules were merged into an identical primary column.
	StatusDuplicate Status = "duplicate"
	// StatusDependent rules were linear combinations of earlier columns.
	StatusDependent Status = "dependent"
)

// RuleResult is one row of the final rule table.
type RuleResult struct {
	Title       string   `json:"title"`
	Key         string   `json:"key"`
	Coefficient float64  `json:"coefficient"`
	PValue      *float64 `json:"p_value"`
	Significant bool     `json:"significant"`
	Support     float64  `json:"support"`
	Leverage    float64  `json:"leverage"`
	Priority    float64  `json:"priority"`
	Whitelist   bool     `json:"whitelist"`
	Intercept   bool     `json:"intercept"`
	Status      Status   `json:"status"`
	// Secondary lists the titles of duplicate rules merged into this one.
	Secondary []string `json:"secondary,omitempty"`
}

// Result is everything a run hands back to its caller.
type Result struct {
	RunID   string `json:"run_id"`
	Dataset string `json:"dataset,omitempty"`
	Target  string `json:"target"`
	// Records counts preprocessed records; Rows counts design rows after
	// duplicate elimination.
	Records int `json:"records"`
	Rows    int `json:"rows"`
	// Rules are in priority order with the intercept first.
	Rules    []RuleResult       `json:"rules"`
	Metrics  evaluation.Metrics `json:"metrics"`
	Scaler   dataset.Scaler     `json:"target_scaler"`
	Warnings []diag.Entry       `json:"warnings"`
	// Fitted is false for rules-only runs.
	Fitted    bool `json:"fitted"`
	Converged bool `json:"converged"`
	// Inference is false when p-values could not be computed.
	Inference bool `json:"inference"`
}

// Active returns the rules that carry a fitted coefficient.
func (r *Result) Active() []RuleResult {
	var out []RuleResult
	for _, rr := range r.Rules {
		if rr.Status == StatusActive {
			out = append(out, rr)
		}
	}
	return out
}

// report joins rule statistics and fit results by rule index.
type report struct {
	rows  []RuleResult
	order []int
}

func newReport(rs []rules.Rule, st []rules.Stats, target string) *report {
	rep := &report{rows: make([]RuleResult, len(rs)), order: rules.SortByPriority(rs, st)}
	for i, r := range rs {
		rep.rows[i] = RuleResult{
			Title:     r.Title(target),
			Key:       r.Key(),
			Support:   st[i].Support,
			Leverage:  st[i].Leverage,
			Priority:  st[i].Priority,
			Whitelist: r.Whitelist,
			Intercept: r.Intercept,
			Status:    StatusCandidate,
		}
	}
	return rep
}

func (rep *report) mark(rule int, s Status) { rep.rows[rule].Status = s }

func (rep *report) secondary(rule int, titles []string) {
	rep.rows[rule].Secondary = append(rep.rows[rule].Secondary, titles...)
}

// attach copies coefficients onto the rules behind the fitted columns.
func (rep *report) attach(fit *regression.Result, cols []int, alpha float64) {
	active := make(map[int]bool, len(fit.Active))
	for _, k := range fit.Active {
		active[k] = true
	}
	for k, j := range cols {
		row := &rep.rows[j]
		if !active[k] {
			row.Status = StatusRemoved
			continue
		}
		row.Status = StatusActive
		row.Coefficient = fit.Coef[k]
		row.PValue = fit.PValues[k]
		row.Significant = row.PValue != nil && *row.PValue < alpha
	}
}

func (rep *report) ordered() []RuleResult {
	out := make([]RuleResult, len(rep.order))
	for k, i := range rep.order {
		out[k] = rep.rows[i]
	}
	return out
}

// Markdown renders the result as a plain-text report.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	if r.Dataset != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Dataset))
	}
	b.WriteString(fmt.Sprintf("Target: %s (mean %.4g, std %.4g)\n", r.Target, r.Scaler.Mean, r.Scaler.Std))
	if r.Fitted && r.Rows > 0 && r.Rows < r.Records {
		b.WriteString(fmt.Sprintf("Records: %d (%d distinct design rows)\n", r.Records, r.Rows))
	} else {
		b.WriteString(fmt.Sprintf("Records: %d\n", r.Records))
	}
	active := r.Active()
	if r.Fitted {
		b.WriteString(fmt.Sprintf("Rules: %d candidates, %d active\n", len(r.Rules), len(active)))
		if !r.Converged {
			b.WriteString("Lasso: iteration cap reached\n")
		}
		if !r.Inference {
			b.WriteString("P-values: unavailable (OLS failed)\n")
		}
	} else {
		b.WriteString(fmt.Sprintf("Rules: %d candidates\n", len(r.Rules)))
	}

	if r.Fitted {
		b.WriteString("\n[METRICS]\n")
		b.WriteString(fmt.Sprintf("MAE: %.4g\n", r.Metrics.MAE))
		b.WriteString(fmt.Sprintf("RMSE: %.4g\n", r.Metrics.RMSE))
		if math.IsNaN(r.Metrics.R2) {
			b.WriteString("R²: undefined (constant target)\n")
		} else {
			b.WriteString(fmt.Sprintf("R²: %.4f\n", r.Metrics.R2))
		}
		b.WriteString(fmt.Sprintf("MAPE: %.2f%%\n", r.Metrics.MAPE))

		b.WriteString("\n[RULES]\n")
		for _, rr := range active {
			b.WriteString("- " + rr.Title)
			b.WriteString(fmt.Sprintf(": coef %.4g, p %s", rr.Coefficient, formatP(rr.PValue, rr.Significant)))
			if !rr.Intercept {
				b.WriteString(fmt.Sprintf(", support %.3f, leverage %.3f, priority %.3f", rr.Support, rr.Leverage, rr.Priority))
			}
			if rr.Whitelist {
				b.WriteString(" [whitelist]")
			}
			b.WriteString("\n")
			for _, s := range rr.Secondary {
				b.WriteString("  • same column as: " + s + "\n")
			}
		}

		var inactive []RuleResult
		for _, rr := range r.Rules {
			if rr.Status != StatusActive {
				inactive = append(inactive, rr)
			}
		}
		if len(inactive) > 0 {
			b.WriteString("\n[INACTIVE RULES]\n")
			for _, rr := range inactive {
				b.WriteString(fmt.Sprintf("- %s (%s, priority %.3f)\n", rr.Title, rr.Status, rr.Priority))
			}
		}
	} else {
		b.WriteString("\n[CANDIDATE RULES]\n")
		for _, rr := range r.Rules {
			if rr.Intercept {
				b.WriteString("- " + rr.Title + "\n")
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: support %.3f, leverage %.3f, priority %.3f", rr.Title, rr.Support, rr.Leverage, rr.Priority))
			if rr.Whitelist {
				b.WriteString(" [whitelist]")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[WARNINGS]\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w.String() + "\n")
		}
	}
	return b.String()
}

func formatP(p *float64, significant bool) string {
	if p == nil {
		return "n/a"
	}
	s := fmt.Sprintf("%.4g", *p)
	if significant {
		s += " *"
	}
	return s
}
