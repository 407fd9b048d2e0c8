package http

import (
	"net/http"
	"sync/atomic"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type transactionListResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Total        int                `json:"total"`
	Page         int                `json:"page"`
	TotalPages   int                `json:"totalPages"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, pageErr := ParsePageRequest(query, s.opts.DefaultPageSize)
	filter, filterErr := ParseTransactionFilter(query)
	if err := joinValidation(pageErr, filterErr); err != nil {
		s.writeError(w, r, log.ComponentTransaction, log.OpList, err)
		return
	}

	result, err := s.transactions.List(r.Context(), filter, page)
	if err != nil {
		s.writeError(w, r, log.ComponentTransaction, log.OpList, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []core.Transaction{}
	}
	NewJSONResponse().Body(transactionListResponse{
		Transactions: items,
		Total:        result.Total,
		Page:         result.Page,
		TotalPages:   result.TotalPages,
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeTransaction(w, r, log.OpCreate)
	if !ok {
		return
	}

	id, err := s.transactions.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.ComponentTransaction, log.OpCreate, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	Created(id).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeTransaction(w, r, log.OpUpdate)
	if !ok {
		return
	}

	if err := s.transactions.Update(r.Context(), pathID(r), in); err != nil {
		s.writeError(w, r, log.ComponentTransaction, log.OpUpdate, err)
		return
	}
	Message("Transaction updated successfully").Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, log.ComponentTransaction, log.OpDelete, err)
		return
	}
	Message("Transaction deleted successfully").Write(w)
}

func (s *Server) decodeTransaction(w http.ResponseWriter, r *http.Request, op string) (core.TransactionInput, bool) {
	var in core.TransactionInput
	if err := DecodeJSONBody(w, r, &in, s.opts.MaxBodyBytes); err != nil {
		s.writeError(w, r, log.ComponentTransaction, op, err)
		return in, false
	}
	in.Description = sanitizeInput(in.Description)
	in.Category = sanitizeInput(in.Category)
	in.Type = sanitizeInput(in.Type)
	in.Date = sanitizeInput(in.Date)
	return in, true
}
