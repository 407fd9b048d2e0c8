package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// YearMonth identifies a calendar month, serialized as YYYY-MM.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	if !monthPattern.MatchString(s) {
		return YearMonth{}, fmt.Errorf("%w: %q must be in YYYY-MM format", ErrInvalidMonth, s)
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	if month < 1 || month > 12 {
		return YearMonth{}, fmt.Errorf("%w: %q has no month %d", ErrInvalidMonth, s, month)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// MonthOf returns the UTC calendar month of t.
func MonthOf(t time.Time) YearMonth {
	t = t.UTC()
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (m YearMonth) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// FirstDay returns the first calendar day of the month.
func (m YearMonth) FirstDay() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// LastDay returns the last calendar day of the month.
func (m YearMonth) LastDay() Date {
	return m.Next().FirstDay().AddDays(-1)
}

func (m YearMonth) Next() YearMonth {
	if m.Month == time.December {
		return YearMonth{Year: m.Year + 1, Month: time.January}
	}
	return YearMonth{Year: m.Year, Month: m.Month + 1}
}

// Contains reports whether d falls in the month.
func (m YearMonth) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

// Before reports whether m is earlier than other.
func (m YearMonth) Before(other YearMonth) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *YearMonth) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseYearMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
