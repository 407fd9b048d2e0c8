package google

import (
	"testing"

	"fintrack/internal/reports"
)

func TestBuildValues(t *testing.T) {
	rows := []reports.BudgetActual{
		{Category: "Food", Budget: 200, Spent: 75.5},
		{Category: "Rent", Budget: 0, Spent: 500},
	}
	values := buildValues(rows)
	if len(values) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(values))
	}
	if values[0][0] != "Category" || values[0][3] != "Remaining" {
		t.Fatalf("unexpected header %v", values[0])
	}
	if values[1][3] != 124.5 {
		t.Errorf("Food remaining = %v, want 124.5", values[1][3])
	}
	if values[2][3] != -500.0 {
		t.Errorf("Rent remaining = %v, want -500", values[2][3])
	}
}

func TestParseBudgetReport(t *testing.T) {
	values := [][]any{
		{"Category", "Budget", "Spent", "Remaining"},
		{"Food", 200.0, 75.5, 124.5},
		{"", "", "", ""},
		{"Rent", "", "500,00"},
		{"Travel", "12.345", 0},
	}
	got, err := parseBudgetReport(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	want := []reports.BudgetActual{
		{Category: "Food", Budget: 200, Spent: 75.5},
		{Category: "Rent", Budget: 0, Spent: 500},
		{Category: "Travel", Budget: 12.35, Spent: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseBudgetReport_RoundTrip(t *testing.T) {
	rows := []reports.BudgetActual{{Category: "Food", Budget: 200, Spent: 0.1}}
	got, err := parseBudgetReport(buildValues(rows))
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 1 || got[0] != rows[0] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestParseBudgetReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]any
	}{
		{name: "missing header", values: [][]any{{"Name", "Budget"}, {"Food", 1}}},
		{name: "bad amount", values: [][]any{{"Category", "Budget", "Spent"}, {"Food", "abc", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseBudgetReport(tt.values); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if rows, err := parseBudgetReport(nil); err != nil || rows != nil {
		t.Fatalf("empty sheet: rows=%v err=%v", rows, err)
	}
}
