package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper that fails the test when the command fails.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolateHome points HOME at a temp dir so no user config leaks in.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeDataset(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < n; i++ {
		x := 10 * float64(i) / float64(n-1)
		b.WriteString(fmt.Sprintf("%.5f,%.5f\n", x, 1+3*x+0.3*math.Cos(float64(i))))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
}

func TestCLI_Init_RunJSON(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "data.csv")
	writeDataset(t, data, 40)
	pipe := filepath.Join(home, "fuzzyreg.yaml")

	out := runCmd(t, "init", pipe, "--target", "y")
	if !strings.Contains(out, "✓ Pipeline configuration written") {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, err := execute(t, "init", pipe); err == nil {
		t.Fatalf("expected init to refuse overwriting %s", pipe)
	}

	res := filepath.Join(home, "out", "result.json")
	runCmd(t, "run", data, "--pipeline", pipe, "--input-sets", "5", "--num-vars", "1", "-f", "json", "-o", res)
	b, err := os.ReadFile(res)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var got struct {
		Target string `json:"target"`
		Fitted bool   `json:"fitted"`
		Rules  []struct {
			Title     string `json:"title"`
			Intercept bool   `json:"intercept"`
		} `json:"rules"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.Target != "y" || !got.Fitted {
		t.Fatalf("unexpected result header: %+v", got)
	}
	if len(got.Rules) < 6 || !got.Rules[0].Intercept {
		t.Fatalf("expected intercept plus at least 5 rules, got %d", len(got.Rules))
	}
}

func TestCLI_RunMarkdownToStdout(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "data.csv")
	writeDataset(t, data, 30)

	out := runCmd(t, "run", data, "-t", "y")
	for _, want := range []string{"[RUN SUMMARY]", "[METRICS]", "[RULES]", "Target: y"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCLI_RulesDryRun(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "data.csv")
	writeDataset(t, data, 30)

	out := runCmd(t, "rules", data, "-t", "y", "--top", "3")
	if !strings.Contains(out, "[CANDIDATE RULES]") {
		t.Fatalf("expected candidate rules section:\n%s", out)
	}
	if strings.Contains(out, "[METRICS]") {
		t.Fatalf("dry run must not fit a model:\n%s", out)
	}
	if !strings.Contains(out, "Showing 4 of") {
		t.Fatalf("expected truncation note:\n%s", out)
	}
}

func TestCLI_RunErrors(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "data.csv")
	writeDataset(t, data, 20)

	if _, err := execute(t, "run", data); err == nil {
		t.Fatalf("expected error without a target")
	}
	if _, err := execute(t, "run", data, "-t", "missing"); err == nil {
		t.Fatalf("expected error for unknown target")
	}
	if _, err := execute(t, "run", data, "-t", "y", "--input-sets", "4"); err == nil {
		t.Fatalf("expected error for unsupported fuzzy set count")
	}
	if _, err := execute(t, "run", data, "-t", "y", "-f", "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolateHome(t)
	runCmd(t, "config", "set", "output_format", "json")
	runCmd(t, "config", "set", "pipeline.num_vars", "3")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "output_format: json") {
		t.Fatalf("expected saved output format:\n%s", out)
	}
	if !strings.Contains(out, "pipeline.num_vars: 3") {
		t.Fatalf("expected saved num_vars:\n%s", out)
	}
	if _, err := execute(t, "config", "set", "log_level", "loud"); err == nil {
		t.Fatalf("expected error for invalid log level")
	}
}

func TestCLI_Inspect(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "data.csv")
	writeDataset(t, data, 12)

	out := runCmd(t, "inspect", data, "-t", "y")
	for _, want := range []string{"[DATASET SUMMARY]", "File: data.csv", "Rows: 12", "- x: numeric", "r with y"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
