package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFile_CreatesDir(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "out.md")
	if err := SafeWriteFile(p, []byte("hello")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("unexpected content %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	taken := map[string]struct{}{}
	first := UniquePath(dir, "metrics", ".fuzzyreg.md", taken)
	if filepath.Base(first) != "metrics.fuzzyreg.md" {
		t.Fatalf("unexpected first path %s", first)
	}
	second := UniquePath(dir, "metrics", ".fuzzyreg.md", taken)
	if filepath.Base(second) != "metrics__2.fuzzyreg.md" {
		t.Fatalf("unexpected second path %s", second)
	}
	// an existing file is skipped as well
	if err := os.WriteFile(filepath.Join(dir, "other.fuzzyreg.md"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := UniquePath(dir, "other", ".fuzzyreg.md", nil); filepath.Base(got) != "other__2.fuzzyreg.md" {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected json %q", b)
	}
}
