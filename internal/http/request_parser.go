// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// query parameters for paging, filtering and month selection, and size-limited
// JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// errMalformedBody marks request bodies that are not a single valid JSON object.
var errMalformedBody = errors.New("malformed request body")

// queryErrors collects invalid query parameters into a ValidationError.
type queryErrors struct {
	fields []core.FieldError
}

func (q *queryErrors) add(field, message string, err error) {
	q.fields = append(q.fields, core.FieldError{Field: field, Message: message, Err: err})
}

func (q *queryErrors) err() error {
	if len(q.fields) == 0 {
		return nil
	}
	return &core.ValidationError{Fields: q.fields}
}

// ParsePageRequest reads page and limit. Missing values fall back to the
// defaults; values that are not positive integers are rejected.
func ParsePageRequest(query url.Values, defaultSize int) (ports.PageRequest, error) {
	var qe queryErrors
	p := ports.PageRequest{Page: ports.DefaultPage, PageSize: defaultSize}
	if p.PageSize < 1 {
		p.PageSize = ports.DefaultPageSize
	}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			qe.add("page", "must be a positive integer", nil)
		} else {
			p.Page = n
		}
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			qe.add("limit", "must be a positive integer", nil)
		} else {
			p.PageSize = n
		}
	}
	return p, qe.err()
}

// ParseTransactionFilter reads the optional type, description, startDate,
// endDate and category predicates.
func ParseTransactionFilter(query url.Values) (ports.TransactionFilter, error) {
	var (
		qe queryErrors
		f  ports.TransactionFilter
	)

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			qe.add("type", `must be "income" or "expense"`, err)
		} else {
			f.Type = t
		}
	}
	f.Description = sanitizeInput(query.Get("description"))
	f.Category = sanitizeInput(query.Get("category"))

	for _, p := range []struct {
		name string
		dst  **core.Date
	}{
		{"startDate", &f.StartDate},
		{"endDate", &f.EndDate},
	} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			qe.add(p.name, "must be a date in YYYY-MM-DD format", err)
			continue
		}
		*p.dst = &d
	}
	return f, qe.err()
}

// ParseMonthParam reads an optional month=YYYY-MM parameter. It returns nil
// when the parameter is absent.
func ParseMonthParam(query url.Values) (*core.YearMonth, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return nil, nil
	}
	m, err := core.ParseYearMonth(v)
	if err != nil {
		var qe queryErrors
		qe.add("month", "must be in YYYY-MM format", err)
		return nil, qe.err()
	}
	return &m, nil
}

// DecodeJSONBody decodes a single JSON object from the request body into dst.
// Bodies larger than maxBytes are rejected. Numbers are kept as json.Number
// so amounts reach the validators without float rounding.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errMalformedBody)
	}
	return nil
}

// joinValidation merges the field errors of several query parsers into one
// ValidationError. Non-validation errors are returned as they are.
func joinValidation(errs ...error) error {
	var qe queryErrors
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *core.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		qe.fields = append(qe.fields, ve.Fields...)
	}
	return qe.err()
}
