package cmd

import (
	"fmt"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	inspectTarget    string
	inspectDelimiter string
	inspectDecimal   string
	inspectSheet     string
	inspectTop       int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Profile a dataset's columns before choosing a target and filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := dataset.Options{Sheet: inspectSheet}
		if inspectDelimiter != "" {
			d := normalizeDelimiter(inspectDelimiter)
			switch d {
			case "tab":
				opt.Delimiter = '\t'
			default:
				r := []rune(d)
				if len(r) != 1 {
					return fmt.Errorf("unsupported --delimiter: %s", inspectDelimiter)
				}
				opt.Delimiter = r[0]
			}
		}
		if inspectDecimal != "" {
			d, err := normalizeDecimal(inspectDecimal)
			if err != nil {
				return err
			}
			opt.DecimalSeparator = []rune(d)[0]
		}
		t, err := dataset.LoadFile(args[0], opt)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dataset.Summarize(t, inspectTarget, inspectTop).Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectTarget, "target", "t", "", "report correlations of numeric columns with this column")
	inspectCmd.Flags().StringVar(&inspectDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	inspectCmd.Flags().StringVar(&inspectDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	inspectCmd.Flags().StringVar(&inspectSheet, "sheet-name", "", "XLSX: sheet name to analyze")
	inspectCmd.Flags().IntVar(&inspectTop, "top", 5, "top categories to list per categorical column")
}
