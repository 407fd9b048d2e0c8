package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ports"
	"fintrack/internal/reports"
	"fintrack/internal/services"
)

const (
	defaultMaxBodyBytes   = 1 << 20
	categoryCacheKey      = "all"
	categoryCacheTTL      = 5 * time.Minute
	cacheCleanupInterval  = 10 * time.Minute
	readinessCheckTimeout = 5 * time.Second
)

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	DefaultPageSize    int
	MaxPageSize        int
	MaxBodyBytes       int64
	// Now is the clock used by the report endpoints.
	Now    func() time.Time
	Logger *log.Logger
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
	cacheHits           int64
	cacheMisses         int64
}

type Server struct {
	http.Server

	store        ports.Store
	transactions *services.TransactionService
	budgets      *services.BudgetService
	categories   *services.CategoryService
	reports      *reports.Engine
	opts         Options
	logger       *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	categoryCache *cache.LRUCache[[]core.Category]
	cacheManager  *cache.Manager
	appMetrics    *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires services, middleware and routes around store. notifier
// may be nil; it is told about every successful write.
func NewServer(addr string, store ports.Store, notifier services.ChangeNotifier, opts Options) *Server {
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = ports.DefaultPageSize
	}
	if opts.MaxPageSize < 1 {
		opts.MaxPageSize = 100
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}

	s := &Server{
		store:            store,
		opts:             opts,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		categoryCache:    cache.NewLRUCache[[]core.Category](1, categoryCacheTTL),
		cacheManager:     cache.NewManager(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	changes := services.Notifiers{services.NotifierFunc(s.invalidateCaches), notifier}
	s.transactions = services.NewTransactionService(store, changes, opts.MaxPageSize)
	s.budgets = services.NewBudgetService(store, changes)
	s.categories = services.NewCategoryService(store, changes)
	s.reports = reports.NewEngine(store, store, reports.WithClock(opts.Now))

	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleRenameCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/expenses/monthly", s.handleMonthlyTotals)
	mux.HandleFunc("GET /api/expenses/summary-by-category", s.handleCategorySummary)
	mux.HandleFunc("GET /api/expenses/budget-vs-actual", s.handleBudgetVsActual)

	// Outermost first: trace assigns the request id every later log line uses.
	var h http.Handler = mux
	h = s.rateLimiter.Middleware(
		s.securityDetector.ExtractClientIP,
		func(w http.ResponseWriter, r *http.Request) { TooManyRequestsError().Write(w) },
		http.MethodPost, http.MethodPut, http.MethodDelete,
	)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// invalidateCaches drops cached category lists after any category write.
func (s *Server) invalidateCaches(ctx context.Context, c core.Change) error {
	if c.Entity == core.EntityCategory {
		s.categoryCache.Clear()
		s.logger.DebugContext(ctx, "Category cache invalidated", log.FieldAction, c.Action, log.FieldID, c.ID)
	}
	return nil
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
