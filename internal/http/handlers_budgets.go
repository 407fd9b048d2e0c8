package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.ComponentBudget, log.OpList, err)
		return
	}

	budgets, err := s.budgets.List(r.Context(), month)
	if err != nil {
		s.writeError(w, r, log.ComponentBudget, log.OpList, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	NewJSONResponse().Body(map[string]any{"budgets": budgets}).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBudget(w, r, log.OpCreate)
	if !ok {
		return
	}

	id, err := s.budgets.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.ComponentBudget, log.OpCreate, err)
		return
	}
	Created(id).Write(w)
}

// handleUpsertBudget sets the budget of the body's (category, month) pair.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBudget(w, r, log.OpUpsert)
	if !ok {
		return
	}

	id, err := s.budgets.Upsert(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.ComponentBudget, log.OpUpsert, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"id": id}).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBudget(w, r, log.OpUpdate)
	if !ok {
		return
	}

	if err := s.budgets.Update(r.Context(), pathID(r), in); err != nil {
		s.writeError(w, r, log.ComponentBudget, log.OpUpdate, err)
		return
	}
	Message("Budget updated successfully").Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.Delete(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, log.ComponentBudget, log.OpDelete, err)
		return
	}
	Message("Budget deleted successfully").Write(w)
}

func (s *Server) decodeBudget(w http.ResponseWriter, r *http.Request, op string) (core.BudgetInput, bool) {
	var in core.BudgetInput
	if err := DecodeJSONBody(w, r, &in, s.opts.MaxBodyBytes); err != nil {
		s.writeError(w, r, log.ComponentBudget, op, err)
		return in, false
	}
	in.Category = sanitizeInput(in.Category)
	in.Month = sanitizeInput(in.Month)
	return in, true
}
