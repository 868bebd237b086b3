// Package diag collects the ordered warnings log a pipeline run hands back to its caller.
package diag

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Entry is one diagnostic. Fields carries structured detail (counts, names).
type Entry struct {
	Stage   string         `json:"stage" yaml:"stage"`
	Message string         `json:"message" yaml:"message"`
	Fields  map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// String renders the entry on one line, fields sorted by key.
func (e Entry) String() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Fields[k]))
	}
	return fmt.Sprintf("[%s] %s (%s)", e.Stage, e.Message, strings.Join(parts, ", "))
}

// Collector is append-only. It is not safe for concurrent use; a pipeline run owns one.
type Collector struct {
	entries []Entry
	logger  *slog.Logger
}

// NewCollector returns a collector mirroring entries to logger (slog.Default when nil).
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger}
}

// Warn records a diagnostic. kv are alternating key/value pairs, as in slog.
func (c *Collector) Warn(stage, msg string, kv ...any) {
	if c == nil {
		return
	}
	e := Entry{Stage: stage, Message: msg}
	if len(kv) > 0 {
		e.Fields = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				key = fmt.Sprint(kv[i])
			}
			e.Fields[key] = kv[i+1]
		}
	}
	c.entries = append(c.entries, e)
	c.logger.Warn(msg, append([]any{"stage", stage}, kv...)...)
}

// Debug logs without recording; used for progress that is not part of the result.
func (c *Collector) Debug(stage, msg string, kv ...any) {
	if c == nil {
		return
	}
	c.logger.Debug(msg, append([]any{"stage", stage}, kv...)...)
}

// Entries returns a copy of the log in insertion order.
func (c *Collector) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len is the number of recorded entries.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Stage filters entries by stage name.
func (c *Collector) Stage(stage string) []Entry {
	var out []Entry
	for _, e := range c.Entries() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
