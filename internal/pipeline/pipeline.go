// Package pipeline runs one analysis end to end: preprocessing, fuzzification,
// rule generation, fuzzy inference, pruning, regression and evaluation.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/diag"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/evaluation"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/features"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/inference"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/pruning"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/regression"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/rules"
)

// Options tunes a run without touching the pipeline configuration.
type Options struct {
	// Logger receives every diagnostic as it is recorded; slog.Default when nil.
	Logger *slog.Logger
	// Sheet picks the XLSX sheet for RunFile.
	Sheet string
	// RulesOnly stops after rule scoring: no design matrix, no regression.
	RulesOnly bool
}

func datasetOptions(cfg *config.Pipeline, opt Options) dataset.Options {
	return dataset.Options{
		Delimiter:        cfg.DelimiterRune(),
		DecimalSeparator: cfg.DecimalRune(),
		Sheet:            opt.Sheet,
	}
}

// Run parses delimited text from r and runs the pipeline on it.
func Run(ctx context.Context, r io.Reader, cfg *config.Pipeline, opt Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, err := dataset.ParseCSV(r, datasetOptions(cfg, opt))
	if err != nil {
		return nil, errs.InStage(dataset.Stage, err)
	}
	return RunTable(ctx, t, cfg, opt)
}

// RunFile loads a CSV, TSV or XLSX file and runs the pipeline on it.
func RunFile(ctx context.Context, path string, cfg *config.Pipeline, opt Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, err := dataset.LoadFile(path, datasetOptions(cfg, opt))
	if err != nil {
		return nil, errs.InStage(dataset.Stage, err)
	}
	return RunTable(ctx, t, cfg, opt)
}

// RunTable runs the pipeline on t, which is modified in place. The context is
// only consulted between stages.
func RunTable(ctx context.Context, t *dataset.Table, cfg *config.Pipeline, opt Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := diag.NewCollector(opt.Logger)
	res := &Result{
		RunID:   uuid.NewString(),
		Dataset: t.Name,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, sc, err := preprocess(t, cfg, c)
	if err != nil {
		return nil, errs.InStage(dataset.Stage, err)
	}
	res.Target, res.Scaler, res.Records = target, sc, t.Len()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	space, err := features.Build(t, target, cfg.InputLabels(), cfg.OutputLabels(), c)
	if err != nil {
		return nil, errs.InStage(features.Stage, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs, st, err := candidates(space, cfg, c)
	if err != nil {
		return nil, errs.InStage(rules.Stage, err)
	}
	report := newReport(rs, st, target)
	if opt.RulesOnly {
		res.Rules = report.ordered()
		res.Warnings = c.Entries()
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	design, err := inference.BuildDesign(space, rs)
	if err != nil {
		return nil, errs.InStage(inference.Stage, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, y, cols := prune(design, rs, cfg, target, report, c)
	res.Rows = len(y)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := make([]regression.Term, len(cols))
	for k, j := range cols {
		terms[k] = regression.Term{
			Name:      rs[j].Title(target),
			Priority:  st[j].Priority,
			Whitelist: rs[j].Whitelist,
			Intercept: rs[j].Intercept,
		}
	}
	fit, err := regression.Fit(x, y, terms, regression.Options{
		RidgeLambda: cfg.RidgeLambda,
		Lasso: regression.LassoOptions{
			Lambda:        cfg.Lasso.Lambda,
			MaxIterations: cfg.Lasso.MaxIterations,
			Tolerance:     cfg.Lasso.Tolerance,
		},
		PriorityFilter: cfg.PriorityFilter,
		MinPriority:    cfg.MinPriority,
	}, c)
	if err != nil {
		return nil, errs.InStage(regression.Stage, err)
	}
	res.Converged, res.Inference = fit.Converged, fit.Inference
	report.attach(fit, cols, cfg.SignificanceLevel)

	// metrics use every preprocessed record, including rows merged as duplicates
	pred := fit.Predict(pruning.SelectColumns(design.X, cols))
	m, err := evaluation.Compute(sc.DestandardizeAll(design.Y), sc.DestandardizeAll(pred))
	if err != nil {
		return nil, errs.InStage(evaluation.Stage, err)
	}
	res.Metrics = m
	res.Fitted = true
	res.Rules = report.ordered()
	res.Warnings = c.Entries()
	return res, nil
}

func preprocess(t *dataset.Table, cfg *config.Pipeline, c *diag.Collector) (string, dataset.Scaler, error) {
	target, err := t.Classify(cfg.TargetVariable)
	if err != nil {
		return "", dataset.Scaler{}, err
	}
	t.DropIncomplete(c)
	if t.Len() == 0 {
		return "", dataset.Scaler{}, fmt.Errorf("%w: no complete records", errs.ErrEmptyDataset)
	}
	sc, err := t.StandardizeColumn(target)
	if err != nil {
		return "", dataset.Scaler{}, err
	}
	if err := t.FilterOutliers(cfg.OutlierFilters, target, sc, c); err != nil {
		return "", dataset.Scaler{}, err
	}
	if err := t.FilterLowVariance(cfg.VarianceThreshold, cfg.RemoveLowVariance, target, sc, c); err != nil {
		return "", dataset.Scaler{}, err
	}
	return target, sc, nil
}

// candidates generates, filters and scores the rules. The intercept, when
// configured, is the first rule.
func candidates(s *features.Space, cfg *config.Pipeline, c *diag.Collector) ([]rules.Rule, []rules.Stats, error) {
	var generated []rules.Rule
	if !cfg.OnlyWhitelist {
		switch cfg.Generation.Strategy {
		case config.StrategyCovering:
			generated = rules.Covering(s, cfg.NumVars, cfg.Generation.Iterations, cfg.Generation.Seed, c)
		default:
			generated = rules.Exhaustive(s, cfg.NumVars, c)
		}
	}
	rs, err := rules.ApplyLists(generated, rules.Lists{
		Whitelist:     cfg.Whitelist,
		Blacklist:     cfg.Blacklist,
		OnlyWhitelist: cfg.OnlyWhitelist,
	}, s, c)
	if err != nil {
		return nil, nil, err
	}
	if len(rs) == 0 {
		return nil, nil, fmt.Errorf("%w: rule generation produced no rules", errs.ErrNoRules)
	}
	if cfg.IncludeIntercept {
		rs = append([]rules.Rule{rules.Intercept()}, rs...)
	}
	return rs, rules.Score(rs, s, cfg.PriorityWeights), nil
}

// prune removes duplicate rows, then duplicate and linearly dependent
// columns. cols maps each column of the returned matrix to its rule.
func prune(d *inference.Design, rs []rules.Rule, cfg *config.Pipeline, target string, rep *report, c *diag.Collector) (x *mat.Dense, y []float64, cols []int) {
	rows, dropped := pruning.DedupRows(d.X, d.Y, cfg.DuplicateThreshold)
	if dropped > 0 {
		c.Warn(pruning.Stage, fmt.Sprintf("removed %d duplicate rows", dropped), "count", dropped)
	}
	x, y = pruning.SelectRows(d.X, d.Y, rows)

	kept, groups := pruning.DedupColumns(x, cfg.DuplicateThreshold)
	for _, primary := range kept {
		secondary := groups[primary]
		if len(secondary) == 0 {
			continue
		}
		titles := make([]string, len(secondary))
		for k, j := range secondary {
			titles[k] = rs[j].Title(target)
			rep.mark(j, StatusDuplicate)
		}
		rep.secondary(primary, titles)
		c.Warn(pruning.Stage, "duplicate rule columns merged",
			"primary", rs[primary].Title(target), "secondary", titles)
	}
	x = pruning.SelectColumns(x, kept)

	gsKept, drops := pruning.GramSchmidt(x, cfg.DependencyThreshold)
	for _, dr := range drops {
		j := kept[dr.Column]
		by := make([]string, len(dr.RuledOutBy))
		for k, b := range dr.RuledOutBy {
			by[k] = rs[kept[b]].Title(target)
		}
		rep.mark(j, StatusDependent)
		c.Warn(pruning.Stage, "linearly dependent rule removed",
			"rule", rs[j].Title(target), "ruled_out_by", by, "residual", dr.Residual)
	}
	cols = make([]int, len(gsKept))
	for k, g := range gsKept {
		cols[k] = kept[g]
	}
	return pruning.SelectColumns(x, gsKept), y, cols
}
