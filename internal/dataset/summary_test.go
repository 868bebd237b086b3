package dataset

import (
	"math"
	"strings"
	"testing"
)

func TestSummarize(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader(strings.Join(semicolonRows, "\n")), Options{Delimiter: ';', DecimalSeparator: ','})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	s := Summarize(tbl, "score", 3)
	if s.Target != "Score" || s.Rows != 5 || len(s.Cols) != 4 {
		t.Fatalf("unexpected summary header: %+v", s)
	}

	group := s.Cols[0]
	if group.Kind != KindCategorical || group.NonNull != 4 || group.Missing != 1 || group.Unique != 2 {
		t.Fatalf("Group summary: %+v", group)
	}
	if len(group.TopValues) != 2 || group.TopValues[0].Value != "A" || group.TopValues[0].Count != 2 {
		t.Fatalf("Group top values: %+v", group.TopValues)
	}

	temp := s.Cols[2]
	if temp.Kind != KindNumeric || temp.Missing != 1 || temp.Min != 70 || temp.Max != 75 {
		t.Fatalf("Temp summary: %+v", temp)
	}
	if math.Abs(temp.Mean-72.5) > 1e-9 {
		t.Fatalf("Temp mean=%v want 72.5", temp.Mean)
	}
	conc := s.Cols[1]
	if math.IsNaN(conc.TargetCorr) || conc.TargetCorr < -1 || conc.TargetCorr > 1 {
		t.Fatalf("Concentration correlation=%v", conc.TargetCorr)
	}
	if !math.IsNaN(s.Cols[3].TargetCorr) {
		t.Fatalf("target must not correlate with itself")
	}

	md := s.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "- Group: categorical (non-null 4, missing 20.0%)", "top: A(2), B(2)", "r with Score"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestSummarize_IQROutliers(t *testing.T) {
	rows := []string{"v"}
	for i := 0; i < 20; i++ {
		rows = append(rows, "10")
	}
	rows = append(rows, "1000")
	tbl, err := ParseCSV(strings.NewReader(strings.Join(rows, "\n")), Options{})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	s := Summarize(tbl, "", 0)
	if s.Cols[0].OutliersIQR != 1 {
		t.Fatalf("outliers=%d want 1", s.Cols[0].OutliersIQR)
	}
	if s.Target != "" {
		t.Fatalf("unexpected target %q", s.Target)
	}
}
