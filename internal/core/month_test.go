package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseYearMonth(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-03", true},
		{"1999-12", true},
		{"2024-13", false},
		{"2024-00", false},
		{"2024-3", false},
		{"2024-03-01", false},
		{"24-03", false},
		{"", false},
	}
	for _, tc := range cases {
		m, err := ParseYearMonth(tc.in)
		if tc.ok {
			if err != nil || m.String() != tc.in {
				t.Fatalf("%q expected ok, got %s (err=%v)", tc.in, m, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestYearMonthBounds(t *testing.T) {
	feb := YearMonth{Year: 2024, Month: time.February}
	if got := feb.FirstDay().String(); got != "2024-02-01" {
		t.Fatalf("first day %s", got)
	}
	if got := feb.LastDay().String(); got != "2024-02-29" {
		t.Fatalf("last day %s", got)
	}
	dec := YearMonth{Year: 2023, Month: time.December}
	if got := dec.Next().String(); got != "2024-01" {
		t.Fatalf("next %s", got)
	}
	if !feb.Contains(NewDate(2024, 2, 29)) || feb.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("contains mismatch")
	}
	if !dec.Before(feb) || feb.Before(dec) {
		t.Fatalf("before mismatch")
	}
}

func TestMonthOfUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 4, 1, 1, 0, 0, 0, loc) // still March in UTC
	if got := MonthOf(ts).String(); got != "2024-03" {
		t.Fatalf("expected 2024-03, got %s", got)
	}
}

func TestYearMonthJSON(t *testing.T) {
	var m YearMonth
	if err := json.Unmarshal([]byte(`"2024-07"`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := json.Marshal(m)
	if string(b) != `"2024-07"` {
		t.Fatalf("unexpected %s", b)
	}
	if err := json.Unmarshal([]byte(`"July"`), &m); err == nil {
		t.Fatalf("expected error")
	}
}
