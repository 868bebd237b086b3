package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/fuzzy"
)

// Generation strategies.
const (
	StrategyExhaustive = "exhaustive"
	StrategyCovering   = "covering"
)

// Outlier filter methods.
const (
	OutlierBounds = "bounds"
	OutlierIQR    = "iqr"
)

// Pipeline is the immutable input of one pipeline run.
type Pipeline struct {
	TargetVariable string `mapstructure:"target_variable" yaml:"target_variable" json:"target_variable" validate:"required"`
	Delimiter      string `mapstructure:"delimiter" yaml:"delimiter" json:"delimiter" validate:"required"`
	Decimal        string `mapstructure:"decimal" yaml:"decimal" json:"decimal" validate:"oneof=. 0x2C"`

	NumericalFuzzification   []string `mapstructure:"numerical_fuzzification" yaml:"numerical_fuzzification" json:"numerical_fuzzification" validate:"required"`
	NumericalDefuzzification []string `mapstructure:"numerical_defuzzification" yaml:"numerical_defuzzification" json:"numerical_defuzzification" validate:"required"`

	NumVars    int        `mapstructure:"num_vars" yaml:"num_vars" json:"num_vars" validate:"min=1"`
	Generation Generation `mapstructure:"generation" yaml:"generation" json:"generation"`

	VarianceThreshold float64                  `mapstructure:"variance_threshold" yaml:"variance_threshold" json:"variance_threshold" validate:"gte=0"`
	RemoveLowVariance bool                     `mapstructure:"remove_low_variance" yaml:"remove_low_variance" json:"remove_low_variance"`
	OutlierFilters    map[string]OutlierFilter `mapstructure:"outlier_filters" yaml:"outlier_filters" json:"outlier_filters" validate:"dive"`

	DuplicateThreshold  float64 `mapstructure:"duplicate_threshold" yaml:"duplicate_threshold" json:"duplicate_threshold" validate:"gte=0"`
	DependencyThreshold float64 `mapstructure:"dependency_threshold" yaml:"dependency_threshold" json:"dependency_threshold" validate:"gte=0"`
	SignificanceLevel   float64 `mapstructure:"significance_level" yaml:"significance_level" json:"significance_level" validate:"gt=0,lt=1"`

	Whitelist     []string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	Blacklist     []string `mapstructure:"blacklist" yaml:"blacklist" json:"blacklist"`
	OnlyWhitelist bool     `mapstructure:"only_whitelist" yaml:"only_whitelist" json:"only_whitelist"`

	RidgeLambda float64 `mapstructure:"ridge_lambda" yaml:"ridge_lambda" json:"ridge_lambda" validate:"gte=0"`
	Lasso       Lasso   `mapstructure:"lasso" yaml:"lasso" json:"lasso"`

	PriorityWeights PriorityWeights `mapstructure:"priority_weights" yaml:"priority_weights" json:"priority_weights"`
	PriorityFilter  bool            `mapstructure:"priority_filter" yaml:"priority_filter" json:"priority_filter"`
	MinPriority     float64         `mapstructure:"min_priority" yaml:"min_priority" json:"min_priority"`

	IncludeIntercept bool `mapstructure:"include_intercept" yaml:"include_intercept" json:"include_intercept"`
}

// Generation selects and tunes the rule synthesis strategy.
type Generation struct {
	Strategy   string `mapstructure:"strategy" yaml:"strategy" json:"strategy" validate:"oneof=exhaustive covering"`
	Iterations int    `mapstructure:"covering_iterations" yaml:"covering_iterations" json:"covering_iterations" validate:"min=1"`
	Seed       uint64 `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// Lasso holds coordinate-descent parameters.
type Lasso struct {
	Lambda        float64 `mapstructure:"lambda" yaml:"lambda" json:"lambda" validate:"gte=0"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations" validate:"min=1"`
	Tolerance     float64 `mapstructure:"tolerance" yaml:"tolerance" json:"tolerance" validate:"gt=0"`
}

// PriorityWeights weight the terms of a rule's priority score.
type PriorityWeights struct {
	Support          float64 `mapstructure:"support" yaml:"support" json:"support"`
	NumAntecedents   float64 `mapstructure:"num_antecedents" yaml:"num_antecedents" json:"num_antecedents"`
	Leverage         float64 `mapstructure:"leverage" yaml:"leverage" json:"leverage"`
	WhitelistBoolean float64 `mapstructure:"whitelist_boolean" yaml:"whitelist_boolean" json:"whitelist_boolean"`
}

// OutlierFilter is either {method: bounds, min, max} or {method: iqr, multiplier}.
type OutlierFilter struct {
	Method     string   `mapstructure:"method" yaml:"method" json:"method" validate:"oneof=bounds iqr"`
	Min        *float64 `mapstructure:"min" yaml:"min,omitempty" json:"min,omitempty"`
	Max        *float64 `mapstructure:"max" yaml:"max,omitempty" json:"max,omitempty"`
	Multiplier float64  `mapstructure:"multiplier" yaml:"multiplier,omitempty" json:"multiplier,omitempty" validate:"gte=0"`
}

// DefaultPipeline returns the configuration used when a field is not set.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Delimiter:                ",",
		Decimal:                  ".",
		NumericalFuzzification:   []string{"low", "medium", "high"},
		NumericalDefuzzification: []string{"low", "medium", "high"},
		NumVars:                  2,
		Generation: Generation{
			Strategy:   StrategyExhaustive,
			Iterations: 50,
			Seed:       1,
		},
		VarianceThreshold:   0,
		DuplicateThreshold:  0.01,
		DependencyThreshold: 1e-6,
		SignificanceLevel:   0.05,
		RidgeLambda:         1e-6,
		Lasso: Lasso{
			Lambda:        0.001,
			MaxIterations: 1000,
			Tolerance:     1e-6,
		},
		PriorityWeights: PriorityWeights{
			Support:          1,
			NumAntecedents:   0.5,
			Leverage:         1,
			WhitelistBoolean: 1,
		},
		IncludeIntercept: true,
	}
}

func setPipelineDefaults(v *viper.Viper, prefix string, d Pipeline) {
	key := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	if d.TargetVariable != "" {
		v.SetDefault(key("target_variable"), d.TargetVariable)
	}
	v.SetDefault(key("delimiter"), d.Delimiter)
	v.SetDefault(key("decimal"), d.Decimal)
	v.SetDefault(key("numerical_fuzzification"), d.NumericalFuzzification)
	v.SetDefault(key("numerical_defuzzification"), d.NumericalDefuzzification)
	v.SetDefault(key("num_vars"), d.NumVars)
	v.SetDefault(key("generation.strategy"), d.Generation.Strategy)
	v.SetDefault(key("generation.covering_iterations"), d.Generation.Iterations)
	v.SetDefault(key("generation.seed"), d.Generation.Seed)
	v.SetDefault(key("variance_threshold"), d.VarianceThreshold)
	v.SetDefault(key("remove_low_variance"), d.RemoveLowVariance)
	v.SetDefault(key("duplicate_threshold"), d.DuplicateThreshold)
	v.SetDefault(key("dependency_threshold"), d.DependencyThreshold)
	v.SetDefault(key("significance_level"), d.SignificanceLevel)
	v.SetDefault(key("ridge_lambda"), d.RidgeLambda)
	v.SetDefault(key("lasso.lambda"), d.Lasso.Lambda)
	v.SetDefault(key("lasso.max_iterations"), d.Lasso.MaxIterations)
	v.SetDefault(key("lasso.tolerance"), d.Lasso.Tolerance)
	v.SetDefault(key("priority_weights.support"), d.PriorityWeights.Support)
	v.SetDefault(key("priority_weights.num_antecedents"), d.PriorityWeights.NumAntecedents)
	v.SetDefault(key("priority_weights.leverage"), d.PriorityWeights.Leverage)
	v.SetDefault(key("priority_weights.whitelist_boolean"), d.PriorityWeights.WhitelistBoolean)
	v.SetDefault(key("priority_filter"), d.PriorityFilter)
	v.SetDefault(key("min_priority"), d.MinPriority)
	v.SetDefault(key("only_whitelist"), d.OnlyWhitelist)
	v.SetDefault(key("include_intercept"), d.IncludeIntercept)
	if len(d.Whitelist) > 0 {
		v.SetDefault(key("whitelist"), d.Whitelist)
	}
	if len(d.Blacklist) > 0 {
		v.SetDefault(key("blacklist"), d.Blacklist)
	}
	if len(d.OutlierFilters) > 0 {
		v.SetDefault(key("outlier_filters"), d.OutlierFilters)
	}
}

// LoadPipeline reads a pipeline configuration file (YAML or JSON, chosen by
// extension) over base, or over DefaultPipeline when base is nil. An empty
// path yields the base itself.
func LoadPipeline(path string, base *Pipeline) (*Pipeline, error) {
	d := DefaultPipeline()
	if base != nil {
		d = *base
	}
	if path == "" {
		return &d, nil
	}
	v := viper.New()
	setPipelineDefaults(v, "", d)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline config: %w", err)
	}
	return &p, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and label vocabularies. Every failure wraps
// errs.ErrInvalidConfiguration.
func (p *Pipeline) Validate() error {
	if p == nil {
		return errs.Invalidf("nil pipeline configuration")
	}
	if err := validate.Struct(p); err != nil {
		return errs.Invalidf("%v", err)
	}
	if d := strings.ToLower(p.Delimiter); d != "tab" && d != `\t` && utf8.RuneCountInString(p.Delimiter) != 1 {
		return errs.Invalidf("delimiter must be a single character, got %q", p.Delimiter)
	}
	if p.DelimiterRune() == p.DecimalRune() {
		return errs.Invalidf("delimiter and decimal separator are both %q", p.Delimiter)
	}
	if _, err := fuzzy.ParseLabels(p.NumericalFuzzification); err != nil {
		return fmt.Errorf("numerical_fuzzification: %w", err)
	}
	if _, err := fuzzy.ParseLabels(p.NumericalDefuzzification); err != nil {
		return fmt.Errorf("numerical_defuzzification: %w", err)
	}
	for col, f := range p.OutlierFilters {
		if f.Method == OutlierBounds && f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return errs.Invalidf("outlier filter %q: min %g > max %g", col, *f.Min, *f.Max)
		}
	}
	return nil
}

// InputLabels returns the validated numerical_fuzzification labels.
func (p *Pipeline) InputLabels() []fuzzy.Label {
	l, _ := fuzzy.ParseLabels(p.NumericalFuzzification)
	return l
}

// OutputLabels returns the validated numerical_defuzzification labels.
func (p *Pipeline) OutputLabels() []fuzzy.Label {
	l, _ := fuzzy.ParseLabels(p.NumericalDefuzzification)
	return l
}

// DelimiterRune is the field separator; tab may be spelled "tab" or "\t".
func (p *Pipeline) DelimiterRune() rune {
	switch strings.ToLower(p.Delimiter) {
	case "tab", `\t`:
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(p.Delimiter)
	return r
}

// DecimalRune is the decimal separator.
func (p *Pipeline) DecimalRune() rune {
	if p.Decimal == "," {
		return ','
	}
	return '.'
}
