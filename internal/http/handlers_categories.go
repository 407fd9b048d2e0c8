package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.listCategories(r.Context())
	if err != nil {
		s.writeError(w, r, log.ComponentCategory, log.OpList, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"categories": cats}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeCategory(w, r, log.OpCreate)
	if !ok {
		return
	}

	id, err := s.categories.Create(r.Context(), in.Name)
	if err != nil {
		s.writeError(w, r, log.ComponentCategory, log.OpCreate, err)
		return
	}
	Created(id).Write(w)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeCategory(w, r, log.OpUpdate)
	if !ok {
		return
	}

	if err := s.categories.Rename(r.Context(), pathID(r), in.Name); err != nil {
		s.writeError(w, r, log.ComponentCategory, log.OpUpdate, err)
		return
	}
	Message("Category updated successfully").Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, log.ComponentCategory, log.OpDelete, err)
		return
	}
	Message("Category deleted successfully").Write(w)
}

func (s *Server) decodeCategory(w http.ResponseWriter, r *http.Request, op string) (core.CategoryInput, bool) {
	var in core.CategoryInput
	if err := DecodeJSONBody(w, r, &in, s.opts.MaxBodyBytes); err != nil {
		s.writeError(w, r, log.ComponentCategory, op, err)
		return in, false
	}
	in.Name = sanitizeInput(in.Name)
	return in, true
}
