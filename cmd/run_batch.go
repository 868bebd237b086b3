package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/pipeline"
	"github.com/KaramelBytes/fuzzyreg-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	rbFlags  pipelineFlags
	rbOutDir string
	rbFormat string
	rbJobs   int
	rbQuiet  bool
)

var runBatchCmd = &cobra.Command{
	Use:   "run-batch <files...>",
	Short: "Run the same pipeline over several datasets in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		p, err := rbFlags.resolve(cmd)
		if err != nil {
			return err
		}
		format := outputFormat(rbFormat)
		if err := checkFormat(format); err != nil {
			return err
		}

		// output paths are fixed up front so collisions resolve in input order
		taken := map[string]struct{}{}
		outputs := make([]string, len(files))
		for i, path := range files {
			dir := filepath.Dir(path)
			if rbOutDir != "" {
				dir = rbOutDir
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			outputs[i] = utils.UniquePath(dir, base, ".fuzzyreg"+formatExt(format), taken)
		}

		jobs := rbJobs
		if jobs <= 0 && cfg != nil {
			jobs = cfg.BatchConcurrency
		}
		if jobs <= 0 {
			jobs = 1
		}

		var mu sync.Mutex
		total := len(files)
		done := 0
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(jobs)
		for i, path := range files {
			g.Go(func() error {
				res, err := pipeline.RunFile(ctx, path, p, pipeline.Options{
					Logger: logger.With("file", filepath.Base(path)),
					Sheet:  rbFlags.sheet,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				out, err := renderResult(res, format)
				if err != nil {
					return err
				}
				if err := utils.SafeWriteFile(outputs[i], out); err != nil {
					return fmt.Errorf("write %s: %w", outputs[i], err)
				}
				mu.Lock()
				defer mu.Unlock()
				done++
				if !rbQuiet {
					fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] ✓ %s → %s (%d active rules, R²=%.4f)\n",
						done, total, filepath.Base(path), outputs[i], len(res.Active()), res.Metrics.R2)
				}
				return nil
			})
		}
		return g.Wait()
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops
// duplicates. The result is sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(runBatchCmd)
	rbFlags.register(runBatchCmd)
	runBatchCmd.Flags().StringVar(&rbOutDir, "out-dir", "", "directory for results (default: next to each input)")
	runBatchCmd.Flags().StringVarP(&rbFormat, "format", "f", "", "output format: markdown|json (default from config)")
	runBatchCmd.Flags().IntVarP(&rbJobs, "jobs", "j", 0, "parallel runs (default from config batch_concurrency)")
	runBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress output")
}
