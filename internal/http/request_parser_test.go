package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

func fieldNames(err error) []string {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	names := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		defaultSize int
		want        ports.PageRequest
		wantFields  []string
	}{
		{"defaults", "", 5, ports.PageRequest{Page: 1, PageSize: 5}, nil},
		{"configured default", "", 20, ports.PageRequest{Page: 1, PageSize: 20}, nil},
		{"zero default falls back", "", 0, ports.PageRequest{Page: 1, PageSize: ports.DefaultPageSize}, nil},
		{"explicit", "page=3&limit=10", 5, ports.PageRequest{Page: 3, PageSize: 10}, nil},
		{"trimmed", "page=%202%20", 5, ports.PageRequest{Page: 2, PageSize: 5}, nil},
		{"zero page", "page=0", 5, ports.PageRequest{Page: 1, PageSize: 5}, []string{"page"}},
		{"negative limit", "limit=-1", 5, ports.PageRequest{Page: 1, PageSize: 5}, []string{"limit"}},
		{"both invalid", "page=abc&limit=x", 5, ports.PageRequest{Page: 1, PageSize: 5}, []string{"page", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePageRequest(q, tt.defaultSize)

			if got != tt.want {
				t.Errorf("ParsePageRequest() = %+v, want %+v", got, tt.want)
			}
			names := fieldNames(err)
			if strings.Join(names, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("invalid fields = %v, want %v (err=%v)", names, tt.wantFields, err)
			}
		})
	}
}

func TestParseTransactionFilter(t *testing.T) {
	q, _ := url.ParseQuery("type=expense&description=%20Coffee%20&category=Food&startDate=2024-03-01&endDate=2024-03-31")
	f, err := ParseTransactionFilter(q)
	if err != nil {
		t.Fatalf("ParseTransactionFilter: %v", err)
	}

	if f.Type != core.Expense {
		t.Errorf("Type = %q", f.Type)
	}
	if f.Description != "Coffee" || f.Category != "Food" {
		t.Errorf("Description/Category = %q/%q", f.Description, f.Category)
	}
	if f.StartDate == nil || f.StartDate.String() != "2024-03-01" {
		t.Errorf("StartDate = %v", f.StartDate)
	}
	if f.EndDate == nil || f.EndDate.String() != "2024-03-31" {
		t.Errorf("EndDate = %v", f.EndDate)
	}
}

func TestParseTransactionFilter_Empty(t *testing.T) {
	f, err := ParseTransactionFilter(url.Values{})
	if err != nil {
		t.Fatalf("ParseTransactionFilter: %v", err)
	}
	if f != (ports.TransactionFilter{}) {
		t.Errorf("filter = %+v, want zero", f)
	}
}

func TestParseTransactionFilter_Invalid(t *testing.T) {
	q, _ := url.ParseQuery("type=gift&startDate=2024-13-01&endDate=yesterday")
	_, err := ParseTransactionFilter(q)

	got := strings.Join(fieldNames(err), ",")
	if got != "type,startDate,endDate" {
		t.Errorf("invalid fields = %q, want type,startDate,endDate", got)
	}
}

func TestParseMonthParam(t *testing.T) {
	tests := []struct {
		query   string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"month=2024-03", "2024-03", false},
		{"month=2024-3", "", true},
		{"month=2024-13", "", true},
		{"month=march", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParam(q)

			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("month = %v, want nil", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("month = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Food"}`, false},
		{"empty", ``, true},
		{"syntax", `{"name":`, true},
		{"trailing object", `{"name":"a"}{"name":"b"}`, true},
		{"wrong type", `{"name":5}`, true},
		{"too large", `{"name":"` + strings.Repeat("x", 200) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst core.CategoryInput
			err := DecodeJSONBody(httptest.NewRecorder(), r, &dst, 128)

			if tt.wantErr {
				if !errors.Is(err, errMalformedBody) {
					t.Errorf("err = %v, want errMalformedBody", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dst.Name != "Food" {
				t.Errorf("Name = %q", dst.Name)
			}
		})
	}
}

func TestDecodeJSONBody_KeepsNumberPrecision(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":0.1,"type":"expense"}`))
	var in core.TransactionInput
	if err := DecodeJSONBody(httptest.NewRecorder(), r, &in, 1024); err != nil {
		t.Fatalf("DecodeJSONBody: %v", err)
	}
	m, err := core.ParseAmount(in.Amount)
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if m.Cents != 10 {
		t.Errorf("Cents = %d, want 10", m.Cents)
	}
}

func TestJoinValidation(t *testing.T) {
	_, pageErr := ParsePageRequest(url.Values{"page": {"x"}}, 5)
	_, filterErr := ParseTransactionFilter(url.Values{"type": {"x"}})

	got := strings.Join(fieldNames(joinValidation(pageErr, filterErr)), ",")
	if got != "page,type" {
		t.Errorf("fields = %q, want page,type", got)
	}
	if err := joinValidation(nil, nil); err != nil {
		t.Errorf("joinValidation(nil, nil) = %v", err)
	}
	plain := errors.New("boom")
	if err := joinValidation(pageErr, plain); err != plain {
		t.Errorf("non-validation error not passed through: %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\ttab", "line1\nline2\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
