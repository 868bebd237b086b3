// Package dataset turns delimited text into records and prepares them for fuzzification.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

// Options controls how raw text is read.
type Options struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// DecimalSeparator is '.' or ','. If 0, '.' is used.
	DecimalSeparator rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// Kind is the inferred type of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumeric
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Value is one cell. Numeric is set when Text parsed as a number under the
// configured decimal convention.
type Value struct {
	Num     float64
	Text    string
	Numeric bool
}

// Num builds a numeric value.
func Num(x float64) Value { return Value{Num: x, Numeric: true} }

// Missing reports whether the cell was empty.
func (v Value) Missing() bool { return !v.Numeric && v.Text == "" }

// Record maps column name to value. Stages mutate records in place.
type Record map[string]Value

// Table is the in-memory dataset. Records never grow; filtering replaces the slice.
type Table struct {
	Name    string
	Columns []string
	Kinds   map[string]Kind
	Records []Record
}

// Len is the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Column returns the numeric values of col in record order. ok is false when
// any record lacks a numeric value for col.
func (t *Table) Column(col string) (vals []float64, ok bool) {
	vals = make([]float64, 0, len(t.Records))
	for _, r := range t.Records {
		v, present := r[col]
		if !present || !v.Numeric {
			return nil, false
		}
		vals = append(vals, v.Num)
	}
	return vals, true
}

// HasColumn reports whether col is part of the table.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Lookup finds a column name case-insensitively.
func (t *Table) Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range t.Columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// DropColumn removes col from the schema and from every record.
func (t *Table) DropColumn(col string) {
	out := t.Columns[:0]
	for _, c := range t.Columns {
		if c != col {
			out = append(out, c)
		}
	}
	t.Columns = out
	delete(t.Kinds, col)
	for _, r := range t.Records {
		delete(r, col)
	}
}

// ColumnsOfKind returns columns of kind k in schema order.
func (t *Table) ColumnsOfKind(k Kind) []string {
	var out []string
	for _, c := range t.Columns {
		if t.Kinds[c] == k {
			out = append(out, c)
		}
	}
	return out
}

// Categories returns the sorted distinct values of a categorical column.
func (t *Table) Categories(col string) []string {
	seen := map[string]struct{}{}
	for _, r := range t.Records {
		seen[r[col].Text] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseCSV reads delimited text with a header row into a Table.
func ParseCSV(rd io.Reader, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header row", errs.ErrEmptyDataset)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return FromRows(header, rows, opt)
}

// FromRows builds a Table from a header and string rows. Short rows are padded
// with empty cells; extra cells are ignored.
func FromRows(header []string, rows [][]string, opt Options) (*Table, error) {
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if dec == opt.Delimiter {
		return nil, errs.Invalidf("delimiter and decimal separator are both %q", string(dec))
	}
	cols := make([]string, 0, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++
		cols = append(cols, name)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: empty header", errs.ErrEmptyDataset)
	}

	t := &Table{Columns: cols, Kinds: make(map[string]Kind, len(cols))}
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		rec := make(Record, len(cols))
		for j, col := range cols {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			v, err := parseCell(cell, dec)
			if err != nil {
				return nil, &errs.DataFormatError{Row: i + 1, Column: col, Value: cell, Reason: err.Error()}
			}
			rec[col] = v
		}
		t.Records = append(t.Records, rec)
	}
	if len(t.Records) == 0 {
		return nil, fmt.Errorf("%w: no data rows", errs.ErrEmptyDataset)
	}
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCell reads one cell under the decimal convention dec. A cell that would
// be numeric under the other convention is rejected rather than read as text.
func parseCell(s string, dec rune) (Value, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if raw == "" {
		return Value{}, nil
	}
	v := Value{Text: raw}
	switch dec {
	case ',':
		if strings.Contains(raw, ".") && !strings.Contains(raw, ",") {
			if _, err := strconv.ParseFloat(raw, 64); err == nil {
				return Value{}, errors.New("'.' decimal point found but decimal convention is ','")
			}
		}
		if f, ok := parseFloat(strings.ReplaceAll(raw, ",", ".")); ok {
			v.Num, v.Numeric = f, true
		}
	default:
		if strings.Contains(raw, ",") {
			if _, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil {
				return Value{}, errors.New("',' decimal separator found but decimal convention is '.'")
			}
			return v, nil
		}
		if f, ok := parseFloat(raw); ok {
			v.Num, v.Numeric = f, true
		}
	}
	return v, nil
}

// parseFloat rejects NaN and infinities so that "nan"/"inf" stay categorical.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
