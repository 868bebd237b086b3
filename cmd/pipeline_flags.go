package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/pipeline"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/utils"
	"github.com/spf13/cobra"
)

// pipelineFlags are the pipeline overrides shared by run, run-batch and rules.
type pipelineFlags struct {
	file          string
	target        string
	delimiter     string
	decimal       string
	numVars       int
	strategy      string
	seed          uint64
	inputSets     int
	outputSets    int
	whitelist     []string
	blacklist     []string
	onlyWhitelist bool
	lambda        float64
	minPriority   float64
	noIntercept   bool
	sheet         string
}

func (f *pipelineFlags) register(c *cobra.Command) {
	fl := c.Flags()
	fl.StringVar(&f.file, "pipeline", "", "pipeline configuration file (YAML or JSON)")
	fl.StringVarP(&f.target, "target", "t", "", "target column to explain")
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	fl.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	fl.IntVar(&f.numVars, "num-vars", 0, "maximum number of variables per rule")
	fl.StringVar(&f.strategy, "strategy", "", "rule generation: exhaustive|covering")
	fl.Uint64Var(&f.seed, "seed", 0, "seed for covering array generation")
	fl.IntVar(&f.inputSets, "input-sets", 0, "fuzzy sets per numeric predictor: 3|5|6|7")
	fl.IntVar(&f.outputSets, "output-sets", 0, "fuzzy sets for the target: 3|5|6|7")
	fl.StringArrayVar(&f.whitelist, "whitelist", nil, "rule that is always considered, e.g. \"if x is low then y is high\" (repeatable)")
	fl.StringArrayVar(&f.blacklist, "blacklist", nil, "rule that is never considered (repeatable)")
	fl.BoolVar(&f.onlyWhitelist, "only-whitelist", false, "skip generation and use whitelisted rules only")
	fl.Float64Var(&f.lambda, "lambda", 0, "Lasso regularization strength")
	fl.Float64Var(&f.minPriority, "min-priority", 0, "drop rules below this priority before fitting")
	fl.BoolVar(&f.noIntercept, "no-intercept", false, "fit without an intercept term")
	fl.StringVar(&f.sheet, "sheet-name", "", "XLSX: sheet name to analyze (default first sheet)")
}

// resolve layers defaults, the global config, the --pipeline file and the
// changed flags, in that order, and validates the outcome.
func (f *pipelineFlags) resolve(c *cobra.Command) (*cfgpkg.Pipeline, error) {
	base := cfgpkg.DefaultPipeline()
	if cfg != nil {
		base = cfg.Pipeline
	}
	p, err := cfgpkg.LoadPipeline(f.file, &base)
	if err != nil {
		return nil, err
	}
	fl := c.Flags()
	if fl.Changed("target") {
		p.TargetVariable = f.target
	}
	if fl.Changed("delimiter") {
		p.Delimiter = normalizeDelimiter(f.delimiter)
	}
	if fl.Changed("decimal") {
		d, err := normalizeDecimal(f.decimal)
		if err != nil {
			return nil, err
		}
		p.Decimal = d
	}
	if fl.Changed("num-vars") {
		p.NumVars = f.numVars
	}
	if fl.Changed("strategy") {
		p.Generation.Strategy = strings.ToLower(strings.TrimSpace(f.strategy))
	}
	if fl.Changed("seed") {
		p.Generation.Seed = f.seed
	}
	if fl.Changed("input-sets") {
		l, err := fuzzy.DefaultLabels(f.inputSets)
		if err != nil {
			return nil, fmt.Errorf("--input-sets: %w", err)
		}
		p.NumericalFuzzification = fuzzy.Strings(l)
	}
	if fl.Changed("output-sets") {
		l, err := fuzzy.DefaultLabels(f.outputSets)
		if err != nil {
			return nil, fmt.Errorf("--output-sets: %w", err)
		}
		p.NumericalDefuzzification = fuzzy.Strings(l)
	}
	if len(f.whitelist) > 0 {
		p.Whitelist = append(append([]string(nil), p.Whitelist...), f.whitelist...)
	}
	if len(f.blacklist) > 0 {
		p.Blacklist = append(append([]string(nil), p.Blacklist...), f.blacklist...)
	}
	if fl.Changed("only-whitelist") {
		p.OnlyWhitelist = f.onlyWhitelist
	}
	if fl.Changed("lambda") {
		p.Lasso.Lambda = f.lambda
	}
	if fl.Changed("min-priority") {
		p.PriorityFilter = true
		p.MinPriority = f.minPriority
	}
	if f.noIntercept {
		p.IncludeIntercept = false
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeDelimiter(s string) string {
	switch strings.ToLower(s) {
	case "\t", `\t`, "tab":
		return "tab"
	case "comma":
		return ","
	case "semicolon":
		return ";"
	}
	return s
}

func normalizeDecimal(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ",", nil
	case ".", "dot":
		return ".", nil
	}
	return "", fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", s)
}

// outputFormat picks the flag value, then the configured default.
func outputFormat(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg != nil && cfg.OutputFormat != "" {
		return cfg.OutputFormat
	}
	return "markdown"
}

func checkFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md", "", "json":
		return nil
	}
	return fmt.Errorf("unsupported --format: %s (use markdown|json)", format)
}

func renderResult(res *pipeline.Result, format string) ([]byte, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return utils.PrettyJSON(res)
	}
	return []byte(res.Markdown()), nil
}

func formatExt(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return ".json"
	}
	return ".md"
}
