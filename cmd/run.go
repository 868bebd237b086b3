package cmd

import (
	"fmt"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/pipeline"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runFlags      pipelineFlags
	runOutputPath string
	runFormat     string
)

var runPipelineCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Fit a fuzzy rule regression model to a CSV/TSV/XLSX dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := runFlags.resolve(cmd)
		if err != nil {
			return err
		}
		res, err := pipeline.RunFile(cmd.Context(), args[0], p, pipeline.Options{
			Logger: logger,
			Sheet:  runFlags.sheet,
		})
		if err != nil {
			return err
		}
		out, err := renderResult(res, outputFormat(runFormat))
		if err != nil {
			return err
		}

		// Decide where to write: --output path or stdout
		if runOutputPath != "" {
			if err := utils.SafeWriteFile(runOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote results to %s (%d active rules, R²=%.4f)\n",
				runOutputPath, len(res.Active()), res.Metrics.R2)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runPipelineCmd)
	runFlags.register(runPipelineCmd)
	runPipelineCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "optional path to write the result")
	runPipelineCmd.Flags().StringVarP(&runFormat, "format", "f", "", "output format: markdown|json (default from config)")
}
