package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 500

type (
	// FieldError describes a single invalid input field.
	FieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Err     error  `json:"-"`
	}

	// ValidationError carries every field violation found in one input.
	ValidationError struct {
		Fields []FieldError
	}

	// TransactionInput is the untrusted shape of a transaction payload.
	// Amount may hold a JSON number, a json.Number or a decimal string.
	TransactionInput struct {
		Amount      any    `json:"amount"`
		Date        string `json:"date"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Category    string `json:"category"`
	}

	BudgetInput struct {
		Category string `json:"category"`
		Amount   any    `json:"amount"`
		Month    string `json:"month"`
	}

	CategoryInput struct {
		Name string `json:"name"`
	}
)

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

func (e *ValidationError) add(field, message string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message, Err: err})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseTransactionInput validates in and returns the normalized transaction.
// All field violations are reported at once.
func ParseTransactionInput(in TransactionInput) (Transaction, error) {
	var (
		ve ValidationError
		tx Transaction
	)
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		ve.add("amount", "must be a number greater than 0", err)
	}
	tx.Amount = amount

	if d, err := ParseDate(in.Date); err != nil {
		ve.add("date", "must be a valid date", err)
	} else {
		tx.Date = d
	}

	desc := strings.TrimSpace(in.Description)
	switch {
	case desc == "":
		ve.add("description", "is required", ErrEmptyDescription)
	case utf8.RuneCountInString(desc) > maxDescriptionLength:
		ve.add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength), ErrDescriptionTooLong)
	}
	tx.Description = desc

	if t, err := ParseTransactionType(in.Type); err != nil {
		ve.add("type", `must be "income" or "expense"`, err)
	} else {
		tx.Type = t
	}

	tx.Category = strings.TrimSpace(in.Category)
	if tx.Category == "" {
		ve.add("category", "is required", ErrEmptyCategory)
	}

	if err := ve.orNil(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// ParseBudgetInput validates in and returns the normalized budget.
func ParseBudgetInput(in BudgetInput) (Budget, error) {
	var (
		ve ValidationError
		b  Budget
	)
	b.Category = strings.TrimSpace(in.Category)
	if b.Category == "" {
		ve.add("category", "is required", ErrEmptyCategory)
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		ve.add("amount", "must be a number greater than 0", err)
	}
	b.Amount = amount

	if m, err := ParseYearMonth(strings.TrimSpace(in.Month)); err != nil {
		ve.add("month", "must be in YYYY-MM format", err)
	} else {
		b.Month = m
	}

	if err := ve.orNil(); err != nil {
		return Budget{}, err
	}
	return b, nil
}

// ParseCategoryName trims name and rejects it when empty.
func ParseCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		ve := &ValidationError{}
		ve.add("name", "is required", ErrEmptyCategoryName)
		return "", ve
	}
	return name, nil
}

// ParseAmount converts an untyped amount to a positive Money value. Amounts
// that round to zero cents are rejected.
func ParseAmount(v any) (Money, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case nil:
		return Money{}, ErrInvalidAmount
	case float64:
		d = decimal.NewFromFloat(x)
	case float32:
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		cents, perr := ParseDecimalToCents(x)
		if perr != nil {
			return Money{}, perr
		}
		return Money{Cents: cents}, nil
	default:
		return Money{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}
