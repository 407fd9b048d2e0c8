package http

import (
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/log"
)

// sanitizeInput removes control characters other than tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// writeError maps err to a response. Validation and body errors become a
// 400; anything else is logged and answered with an opaque 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, component, operation string, err error) {
	logger := log.FromContext(r.Context())
	if resp := ValidationErrorResponse(err); resp != nil {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		resp.Write(w)
		return
	}
	if errors.Is(err, errMalformedBody) {
		BadRequestError(err.Error()).Write(w)
		return
	}

	fields := log.NewFields().WithErrorType(log.ErrorTypeInternal)
	log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, component, operation, fields)
	InternalServerError("internal server error").Write(w)
}

// pathID returns the {id} wildcard, trimmed.
func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
