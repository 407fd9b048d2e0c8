package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready only when the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentStorage).WarnContext(r.Context(), "Readiness check failed",
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		checks["store"] = "unavailable"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{
		"category_entries": s.categoryCache.Size(),
		"status":           "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	metrics := []struct {
		name, help, kind string
		value            int64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors},
		{"http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime},
		{"transactions_created_total", "Transactions created through the API", "counter", atomic.LoadInt64(&s.appMetrics.transactionsCreated)},
		{"cache_hits_total", "Total cache hits", "counter", atomic.LoadInt64(&s.appMetrics.cacheHits)},
		{"cache_misses_total", "Total cache misses", "counter", atomic.LoadInt64(&s.appMetrics.cacheMisses)},
		{"cache_entries", "Current cache entries", "gauge", int64(s.categoryCache.Size())},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
		{"invalid_forwarded_ip_total", "Forwarded client addresses that failed to parse", "counter", securityMetrics.InvalidIPAttempts},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}

// listCategories serves the category list from cache when possible.
func (s *Server) listCategories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := s.categoryCache.Get(categoryCacheKey); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return cats, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []core.Category{}
	}
	s.categoryCache.Set(categoryCacheKey, cats)
	return cats, nil
}
