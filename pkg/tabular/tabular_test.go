package tabular_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/getmint-ai/visibility-mcp/pkg/tabular"
)

// sampleRows covers two dates and two models with a brand plus two
// competitors; competitor "Zenith" only reports on the second date.
func sampleRows() []tabular.Row {
	return []tabular.Row{
		{Date: "2026-01-01", Model: "GLOBAL", Entity: "Your Brand", Value: 10},
		{Date: "2026-01-01", Model: "GLOBAL", Entity: "Acme", Value: 5},
		{Date: "2026-01-02", Model: "GLOBAL", Entity: "Your Brand", Value: 12},
		{Date: "2026-01-02", Model: "GLOBAL", Entity: "Acme", Value: 5},
		{Date: "2026-01-02", Model: "GLOBAL", Entity: "Zenith", Value: 3.456},
		{Date: "2026-01-01", Model: "gpt-4o", Entity: "Your Brand", Value: 11},
		{Date: "2026-01-02", Model: "gpt-4o", Entity: "Your Brand", Value: 9},
	}
}

func TestPivot_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := tabular.Pivot(nil)
	if err != tabular.ErrNoData {
		t.Fatalf("Pivot(nil) error = %v, want ErrNoData", err)
	}
}

func TestPivot_RowCountMatchesDistinctKeys(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot(sampleRows())
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	// Distinct (date, model) pairs: (01-01, GLOBAL), (01-02, GLOBAL),
	// (01-01, gpt-4o), (01-02, gpt-4o).
	if len(res.Rows) != 4 {
		t.Errorf("got %d rows, want 4", len(res.Rows))
	}
}

func TestPivot_RowOrder(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot(sampleRows())
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}

	type key struct{ date, model string }
	var got []key
	for _, r := range res.Rows {
		got = append(got, key{r.Date, r.Model})
	}
	want := []key{
		{"2026-01-01", "GLOBAL"},
		{"2026-01-01", "gpt-4o"},
		{"2026-01-02", "GLOBAL"},
		{"2026-01-02", "gpt-4o"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("row order = %v, want %v", got, want)
	}
}

func TestPivot_LeadColumnFirst(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot(sampleRows(), tabular.WithLeadColumn("Your Brand"))
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	want := []string{"Your Brand", "Acme", "Zenith"}
	if !slices.Equal(res.Columns, want) {
		t.Errorf("Columns = %v, want %v", res.Columns, want)
	}
}

func TestPivot_AbsentLeadIgnored(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot(sampleRows(), tabular.WithLeadColumn("Nobody"))
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	want := []string{"Acme", "Your Brand", "Zenith"}
	if !slices.Equal(res.Columns, want) {
		t.Errorf("Columns = %v, want %v", res.Columns, want)
	}
}

func TestPivot_DeterministicAcrossRowOrder(t *testing.T) {
	t.Parallel()

	base, err := tabular.Pivot(sampleRows(), tabular.WithLeadColumn("Your Brand"))
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 10 {
		shuffled := sampleRows()
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		res, err := tabular.Pivot(shuffled, tabular.WithLeadColumn("Your Brand"))
		if err != nil {
			t.Fatalf("Pivot(shuffled): %v", err)
		}
		if !slices.Equal(res.Columns, base.Columns) {
			t.Fatalf("column order changed: %v vs %v", res.Columns, base.Columns)
		}
		for i, row := range res.Rows {
			if row.Date != base.Rows[i].Date || row.Model != base.Rows[i].Model {
				t.Fatalf("row %d key changed: %s/%s vs %s/%s",
					i, row.Date, row.Model, base.Rows[i].Date, base.Rows[i].Model)
			}
		}
	}
}

func TestPivot_AbsenceIsNotZero(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot(sampleRows())
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}

	// Zenith only reported on 2026-01-02/GLOBAL. The 2026-01-01/GLOBAL row
	// must have no cell for it.
	first := res.Rows[0]
	if _, ok := first.Cells["Zenith"]; ok {
		t.Errorf("row %s/%s has a Zenith cell, want absent", first.Date, first.Model)
	}

	// And its stats must use only the single populated cell.
	st, ok := res.Stats["Zenith"]
	if !ok {
		t.Fatal("Stats missing Zenith")
	}
	if st.SampleCount != 1 {
		t.Errorf("Zenith SampleCount = %d, want 1", st.SampleCount)
	}
	if st.Average != 3.46 || st.Min != 3.46 || st.Max != 3.46 {
		t.Errorf("Zenith stats = %+v, want 3.46 everywhere", st)
	}
}

func TestPivot_CellRounding(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot([]tabular.Row{
		{Date: "2026-01-01", Model: "GLOBAL", Entity: "A", Value: 1.006},
		{Date: "2026-01-02", Model: "GLOBAL", Entity: "A", Value: 2.994},
	})
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if got := res.Rows[0].Cells["A"]; got != 1.01 {
		t.Errorf("cell = %v, want 1.01", got)
	}
	if got := res.Rows[1].Cells["A"]; got != 2.99 {
		t.Errorf("cell = %v, want 2.99", got)
	}
}

func TestPivot_Stats(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot(sampleRows(), tabular.WithLeadColumn("Your Brand"))
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}

	tests := []struct {
		entity  string
		average float64
		min     float64
		max     float64
		count   int
	}{
		// Your Brand: 10, 12, 11, 9 → mean 10.5
		{entity: "Your Brand", average: 10.5, min: 9, max: 12, count: 4},
		// Acme: 5, 5 → mean 5
		{entity: "Acme", average: 5, min: 5, max: 5, count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.entity, func(t *testing.T) {
			st, ok := res.Stats[tt.entity]
			if !ok {
				t.Fatalf("Stats missing %q", tt.entity)
			}
			if st.Average != tt.average {
				t.Errorf("Average = %v, want %v", st.Average, tt.average)
			}
			if st.Min != tt.min || st.Max != tt.max {
				t.Errorf("Min/Max = %v/%v, want %v/%v", st.Min, st.Max, tt.min, tt.max)
			}
			if st.SampleCount != tt.count {
				t.Errorf("SampleCount = %d, want %d", st.SampleCount, tt.count)
			}
		})
	}
}

func TestPivot_LastValueWinsOnDuplicates(t *testing.T) {
	t.Parallel()

	res, err := tabular.Pivot([]tabular.Row{
		{Date: "2026-01-01", Model: "GLOBAL", Entity: "A", Value: 1},
		{Date: "2026-01-01", Model: "GLOBAL", Entity: "A", Value: 2},
	})
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
	if got := res.Rows[0].Cells["A"]; got != 2 {
		t.Errorf("cell = %v, want 2 (last value)", got)
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0.125, want: 0.13},
		{in: -0.125, want: -0.13},
		{in: 2.994, want: 2.99},
		{in: 0, want: 0},
		{in: 33.333333, want: 33.33},
	}
	for _, tt := range tests {
		if got := tabular.Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
