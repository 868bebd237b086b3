package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/fuzzyreg-cli/internal/errs"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet (first sheet by default). The first row is the
// header. Cells come back as formatted strings, so the decimal convention
// applies exactly as for delimited text.
func (xlsxLoader) Load(path string, opt Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", errs.ErrEmptyDataset, filepath.Base(path))
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, errs.Invalidf("sheet %q not found in workbook %s (available: %s)",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", errs.ErrEmptyDataset, sheet)
	}
	// Spreadsheets have no field delimiter; only the decimal check matters.
	opt.Delimiter = 0
	t, err := FromRows(rows[0], rows[1:], opt)
	if err != nil {
		return nil, err
	}
	t.Name = fmt.Sprintf("%s (sheet: %s)", filepath.Base(path), sheet)
	return t, nil
}
