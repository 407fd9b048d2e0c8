package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"12.34", 1234},
		{"12.345", 1235},
		{"0.004", 0},
		{"199.999", 20000},
		{"-3.5", -350},
	}
	for _, tc := range cases {
		got, err := MoneyFromDecimal(decimal.RequireFromString(tc.in))
		if err != nil || got.Cents != tc.out {
			t.Fatalf("%s expected %d cents, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
		}
	}
}

func TestMoneyFromDecimalOutOfRange(t *testing.T) {
	cases := []string{
		"184467440737095520",
		"92233720368547758.08",
		"-92233720368547758.09",
		"1e30",
	}
	for _, in := range cases {
		got, err := MoneyFromDecimal(decimal.RequireFromString(in))
		if !errors.Is(err, ErrAmountOutOfRange) || !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s expected out of range, got %d (err=%v)", in, got.Cents, err)
		}
	}
	edge, err := MoneyFromDecimal(decimal.RequireFromString("92233720368547758.07"))
	if err != nil || edge.Cents != math.MaxInt64 {
		t.Fatalf("expected max cents, got %d (err=%v)", edge.Cents, err)
	}
}

func TestMoneyFloatAndJSON(t *testing.T) {
	m := Money{Cents: 1050}
	if m.Float() != 10.5 {
		t.Fatalf("expected 10.5, got %v", m.Float())
	}
	if m.String() != "10.50" {
		t.Fatalf("expected 10.50, got %s", m.String())
	}
	b, err := json.Marshal(m)
	if err != nil || string(b) != "10.5" {
		t.Fatalf("unexpected json %s (err=%v)", b, err)
	}
	var back Money
	if err := json.Unmarshal([]byte(`"7.25"`), &back); err != nil || back.Cents != 725 {
		t.Fatalf("unexpected unmarshal %+v (err=%v)", back, err)
	}
	if err := json.Unmarshal([]byte(`1e19`), &back); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for 1e19, got %v (value %+v)", err, back)
	}
	// float sums must not drift once converted through cents
	a, _ := MoneyFromDecimal(decimal.NewFromFloat(0.1))
	b2, _ := MoneyFromDecimal(decimal.NewFromFloat(0.2))
	if a.Cents+b2.Cents != 30 {
		t.Fatalf("expected 30 cents")
	}
}
