package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/realtime"
	"saldo/internal/services"
)

// LedgerSource hands out the loaded ledger of an owner.
type LedgerSource interface {
	Ledger(ctx context.Context, ownerID string) (*services.Ledger, error)
	Cached() int
}

// Config tunes the server.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	// ReadyCheck reports whether the storage backend answers. Optional.
	ReadyCheck func(ctx context.Context) error
}

// Server is the JSON API in front of the per-owner ledgers.
type Server struct {
	http.Server

	ledgers   LedgerSource
	hub       *realtime.Hub
	logger    *log.Logger
	mutations *log.StructuredLogger
	ready     func(ctx context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. hub may be nil, in which case /ws answers 503.
func NewServer(cfg Config, ledgers LedgerSource, hub *realtime.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledgers:   ledgers,
		hub:       hub,
		logger:    logger,
		mutations: log.NewStructuredLogger(logger),
		ready:     cfg.ReadyCheck,
		detector:  security.NewDetector(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}, logger),
		started: time.Now(),
		now:     time.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/recurring", s.handleRecurringTransactions)
	api.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("POST /api/categories", s.handleCreateCategory)
	api.HandleFunc("PATCH /api/categories/{id}", s.handleUpdateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	api.HandleFunc("GET /api/balance", s.handleBalance)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /ws", s.handleWebsocket)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
	})(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", limited)
	mux.Handle("/ws", limited)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain wraps h with, from the outside in: tracing, logger injection,
// request id logging, security headers and scan detection.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(s.logger)(h)
	return s.tracer.Middleware(h)
}

// Shutdown stops the rate limiter and drains the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ledger resolves the owner of r and its ledger. On failure the error
// response has already been written.
func (s *Server) ledger(w http.ResponseWriter, r *http.Request) (*services.Ledger, bool) {
	owner, err := ownerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	l, err := s.ledgers.Ledger(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return l, true
}

// writeError maps err to a JSON error response, logging server-side
// failures with the request's logger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	b := ErrorFor(err)
	if b.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path, log.NewFields().WithOwner(r.Header.Get(OwnerHeader)))
	}
	if body, ok := b.body.(ErrorBody); ok {
		body.RequestID = trace.GetRequestID(r.Context())
		b.Body(body)
	}
	b.Write(w)
}
