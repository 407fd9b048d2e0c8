package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionInput(t *testing.T) {
	tx, err := ParseTransactionInput(TransactionInput{
		Amount:      12.5,
		Date:        "2024-01-15",
		Description: "  groceries ",
		Type:        "expense",
		Category:    "Food",
	})
	require.NoError(t, err)
	assert.Equal(t, Money{Cents: 1250}, tx.Amount)
	assert.Equal(t, NewDate(2024, 1, 15), tx.Date)
	assert.Equal(t, "groceries", tx.Description)
	assert.Equal(t, Expense, tx.Type)
	assert.Equal(t, "Food", tx.Category)
}

func TestParseTransactionInputReportsEveryField(t *testing.T) {
	_, err := ParseTransactionInput(TransactionInput{
		Amount:      -5,
		Date:        "not-a-date",
		Description: "",
		Type:        "transfer",
		Category:    "",
	})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	fields := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"amount", "date", "description", "type", "category"}, fields)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.ErrorIs(t, err, ErrEmptyDescription)
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.ErrorIs(t, err, ErrEmptyCategory)
	assert.True(t, IsValidation(err))
}

func TestParseTransactionInputDescriptionTooLong(t *testing.T) {
	_, err := ParseTransactionInput(TransactionInput{
		Amount:      1,
		Date:        "2024-01-15",
		Description: strings.Repeat("x", maxDescriptionLength+1),
		Type:        "income",
		Category:    "Salary",
	})
	assert.ErrorIs(t, err, ErrDescriptionTooLong)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"float", 19.99, 1999, true},
		{"int", 3, 300, true},
		{"json number", json.Number("0.01"), 1, true},
		{"string", "4,20", 420, true},
		{"rounds up", 0.005, 1, true},
		{"rounds to zero", 0.004, 0, false},
		{"zero", 0.0, 0, false},
		{"negative", -5.0, 0, false},
		{"bool", true, 0, false},
		{"missing", nil, 0, false},
		{"garbage number", json.Number("1e"), 0, false},
		{"overflowing number", json.Number("184467440737095520"), 0, false},
		{"overflowing float", 1.8446744073709552e17, 0, false},
		{"overflowing string", "184467440737095520", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Cents)
		})
	}
}

func TestParseBudgetInput(t *testing.T) {
	b, err := ParseBudgetInput(BudgetInput{Category: "Food", Amount: json.Number("200"), Month: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, "Food", b.Category)
	assert.Equal(t, int64(20000), b.Amount.Cents)
	assert.Equal(t, "2024-03", b.Month.String())

	_, err = ParseBudgetInput(BudgetInput{Category: " ", Amount: 0.0, Month: "2024-3"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestParseCategoryName(t *testing.T) {
	name, err := ParseCategoryName("  Travel ")
	require.NoError(t, err)
	assert.Equal(t, "Travel", name)

	_, err = ParseCategoryName("   ")
	assert.ErrorIs(t, err, ErrEmptyCategoryName)
	assert.Contains(t, err.Error(), "name: is required")
}
