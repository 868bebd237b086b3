package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/fuzzyreg-cli/internal/config"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initTarget string
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a pipeline configuration template (default ./fuzzyreg.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "fuzzyreg.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		path, err := expandHome(path)
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing file.
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		p := cfgpkg.DefaultPipeline()
		if cfg != nil {
			p = cfg.Pipeline
		}
		if initTarget != "" {
			p.TargetVariable = initTarget
		}
		b, err := cfgpkg.MarshalPipeline(&p)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(path, b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pipeline configuration written: %s\n", path)
		if p.TargetVariable == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "⚠ Warning: target_variable is empty; set it in the file or pass --target when running")
		}
		return nil
	},
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	path = strings.TrimPrefix(path, "~")
	path = strings.TrimPrefix(path, string(os.PathSeparator))
	path = strings.TrimPrefix(path, "/")
	return filepath.Join(home, path), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initTarget, "target", "t", "", "target column to put in the template")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
}
