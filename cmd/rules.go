package cmd

import (
	"fmt"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	rulesFlags  pipelineFlags
	rulesTop    int
	rulesFormat string
)

var rulesCmd = &cobra.Command{
	Use:   "rules <file>",
	Short: "Preprocess a dataset and list candidate rules by priority (no regression)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := rulesFlags.resolve(cmd)
		if err != nil {
			return err
		}
		res, err := pipeline.RunFile(cmd.Context(), args[0], p, pipeline.Options{
			Logger:    logger,
			Sheet:     rulesFlags.sheet,
			RulesOnly: true,
		})
		if err != nil {
			return err
		}
		total := len(res.Rules)
		if rulesTop > 0 {
			keep := rulesTop
			if p.IncludeIntercept {
				keep++
			}
			if keep < len(res.Rules) {
				res.Rules = res.Rules[:keep]
			}
		}
		out, err := renderResult(res, outputFormat(rulesFormat))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if len(res.Rules) < total {
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d of %d rules\n", len(res.Rules), total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesFlags.register(rulesCmd)
	rulesCmd.Flags().IntVar(&rulesTop, "top", 0, "show only the N highest-priority rules (0 = all)")
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", "", "output format: markdown|json (default from config)")
}
