package http

import (
	"net/http"

	"fintrack/internal/log"
)

// dataResponse wraps report rows as {"data": rows}.
type dataResponse[T any] struct {
	Data []T `json:"data"`
}

func writeData[T any](w http.ResponseWriter, rows []T) {
	if rows == nil {
		rows = []T{}
	}
	NewJSONResponse().Body(dataResponse[T]{Data: rows}).Write(w)
}

func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.MonthlyExpenseTotals(r.Context())
	if err != nil {
		s.writeError(w, r, log.ComponentReports, log.OpReport, err)
		return
	}
	writeData(w, rows)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.CategorySpendThisMonth(r.Context())
	if err != nil {
		s.writeError(w, r, log.ComponentReports, log.OpReport, err)
		return
	}
	writeData(w, rows)
}

// handleBudgetVsActual defaults to the current month when month is absent.
func (s *Server) handleBudgetVsActual(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.ComponentReports, log.OpReport, err)
		return
	}

	rows, err := s.reports.BudgetVsActual(r.Context(), month)
	if err != nil {
		s.writeError(w, r, log.ComponentReports, log.OpReport, err)
		return
	}
	writeData(w, rows)
}
