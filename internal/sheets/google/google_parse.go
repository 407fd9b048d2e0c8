package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/reports"
)

var reportHeader = []any{"Category", "Budget", "Spent", "Remaining"}

// buildValues lays out a budget report as a header row followed by one row
// per category. Remaining is negative when the category is over budget.
func buildValues(rows []reports.BudgetActual) [][]any {
	values := make([][]any, 0, len(rows)+1)
	values = append(values, reportHeader)
	for _, r := range rows {
		budget := decimal.NewFromFloat(r.Budget).Round(2)
		spent := decimal.NewFromFloat(r.Spent).Round(2)
		values = append(values, []any{r.Category, budget.InexactFloat64(), spent.InexactFloat64(), budget.Sub(spent).InexactFloat64()})
	}
	return values
}

// parseBudgetReport converts a values matrix (as returned by Sheets API)
// back into report rows. It expects a header row with Category, Budget and
// Spent; blank rows are skipped.
func parseBudgetReport(values [][]any) ([]reports.BudgetActual, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colCategory := indexOf(headers, "Category")
	colBudget := indexOf(headers, "Budget")
	colSpent := indexOf(headers, "Spent")
	if colCategory == -1 || colBudget == -1 || colSpent == -1 {
		return nil, fmt.Errorf("unexpected report header: got headers=%v", headers)
	}

	out := make([]reports.BudgetActual, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		category := safeGet(row, colCategory)
		if category == "" {
			continue
		}
		budget, err := parseAmount(safeGet(row, colBudget))
		if err != nil {
			return nil, fmt.Errorf("row %d budget: %w", i+1, err)
		}
		spent, err := parseAmount(safeGet(row, colSpent))
		if err != nil {
			return nil, fmt.Errorf("row %d spent: %w", i+1, err)
		}
		out = append(out, reports.BudgetActual{Category: category, Budget: budget.Float(), Spent: spent.Float()})
	}
	return out, nil
}

// parseAmount reads a cell as money; an empty cell is zero. Decimal commas
// are accepted.
func parseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return core.Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return m, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
