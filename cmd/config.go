package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/spf13/cobra"
)

var configShowPipeline bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set fuzzyreg defaults",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "output_format: %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "batch_concurrency: %d\n", cfg.BatchConcurrency)
		if !configShowPipeline {
			p := cfg.Pipeline
			if p.TargetVariable != "" {
				fmt.Fprintf(out, "pipeline.target_variable: %s\n", p.TargetVariable)
			}
			fmt.Fprintf(out, "pipeline.num_vars: %d\n", p.NumVars)
			fmt.Fprintf(out, "pipeline.generation.strategy: %s\n", p.Generation.Strategy)
			fmt.Fprintf(out, "pipeline.numerical_fuzzification: %s\n", strings.Join(p.NumericalFuzzification, ","))
			fmt.Fprintf(out, "pipeline.numerical_defuzzification: %s\n", strings.Join(p.NumericalDefuzzification, ","))
			fmt.Fprintf(out, "pipeline.lasso.lambda: %g\n", p.Lasso.Lambda)
			fmt.Fprintf(out, "pipeline.include_intercept: %t\n", p.IncludeIntercept)
			return nil
		}
		b, err := cfgpkg.MarshalPipeline(&cfg.Pipeline)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "pipeline:")
		for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
			fmt.Fprintln(out, "  "+line)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "output_format":
			if err := checkFormat(val); err != nil || val == "" {
				return fmt.Errorf("invalid output_format: %s (use markdown or json)", val)
			}
			cfg.OutputFormat = strings.ToLower(val)
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
		case "batch_concurrency":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for batch_concurrency: %v", val)
			}
			cfg.BatchConcurrency = i
		case "pipeline.target_variable":
			cfg.Pipeline.TargetVariable = val
		case "pipeline.delimiter":
			cfg.Pipeline.Delimiter = normalizeDelimiter(val)
		case "pipeline.decimal":
			d, err := normalizeDecimal(val)
			if err != nil {
				return err
			}
			cfg.Pipeline.Decimal = d
		case "pipeline.num_vars":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for pipeline.num_vars: %v", val)
			}
			cfg.Pipeline.NumVars = i
		case "pipeline.generation.strategy":
			switch strings.ToLower(val) {
			case cfgpkg.StrategyExhaustive, cfgpkg.StrategyCovering:
				cfg.Pipeline.Generation.Strategy = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid strategy: %s (use exhaustive or covering)", val)
			}
		case "pipeline.lasso.lambda":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for pipeline.lasso.lambda: %v", val)
			}
			cfg.Pipeline.Lasso.Lambda = f
		case "pipeline.include_intercept":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for pipeline.include_intercept: %w", err)
			}
			cfg.Pipeline.IncludeIntercept = b
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configShowCmd.Flags().BoolVar(&configShowPipeline, "pipeline", false, "print the full default pipeline configuration as YAML")
}
