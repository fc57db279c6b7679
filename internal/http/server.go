package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/cors"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/ports"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// RecentTransactions is how many recent records the analytics view carries.
const RecentTransactions = 10

// TransactionManager is what the transaction endpoints need from the
// service layer.
type TransactionManager interface {
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Get(ctx context.Context, id string) (core.Transaction, error)
	List(ctx context.Context, f core.TransactionFilter, limit, offset int) ([]core.Transaction, int64, error)
	Update(ctx context.Context, id string, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Options configures NewServer.
type Options struct {
	Addr           string
	Transactions   TransactionManager
	Analytics      ports.AnalyticsReader
	Logger         *log.Logger
	AllowedOrigins []string
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// forwarded-for headers identify the client.
	TrustedProxies []string
	// Production hides error details from clients.
	Production bool
}

type Server struct {
	http.Server
	transactions TransactionManager
	analytics    ports.AnalyticsReader
	logger       *log.Logger
	production   bool
	startedAt    time.Time
	now          func() time.Time

	detector *security.Detector
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		transactions: opts.Transactions,
		analytics:    opts.Analytics,
		logger:       logger.WithComponent(log.ComponentHTTP),
		production:   opts.Production,
		startedAt:    time.Now(),
		now:          time.Now,
		detector:     security.NewDetector(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	mux := http.NewServeMux()

	tx := log.ComponentMiddleware(log.ComponentTransaction)
	mux.Handle("GET /api/transactions", tx(http.HandlerFunc(s.handleListTransactions)))
	mux.Handle("POST /api/transactions", tx(http.HandlerFunc(s.handleCreateTransaction)))
	mux.Handle("GET /api/transactions/{id}", tx(http.HandlerFunc(s.handleGetTransaction)))
	mux.Handle("PUT /api/transactions/{id}", tx(http.HandlerFunc(s.handleUpdateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", tx(http.HandlerFunc(s.handleDeleteTransaction)))

	an := log.ComponentMiddleware(log.ComponentAnalytics)
	mux.Handle("GET /api/analytics/summary", an(http.HandlerFunc(s.handleSummary)))
	mux.Handle("GET /api/analytics/analytics", an(http.HandlerFunc(s.handleAnalytics)))
	mux.Handle("GET /api/analytics/categories", an(http.HandlerFunc(s.handleCategories)))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Everything else, whatever the method.
	mux.HandleFunc("/", s.handleNotFound)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: true,
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	// Outermost first: context logger, tracing, panic recovery, headers,
	// suspicious request detection, CORS, body limit.
	var handler http.Handler = mux
	handler = limitBody(handler)
	handler = corsHandler.Handler(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.recoverer(handler)
	handler = tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	return s
}

// SuspiciousRequests reports how many requests the detector flagged as suspicious.
func (s *Server) SuspiciousRequests() int64 {
	return s.detector.GetMetrics().SuspiciousRequests
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer turns a handler panic into a 500 SERVER_ERROR envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			stack := string(debug.Stack())
			ctx := r.Context()
			log.FromContext(ctx).ErrorContext(ctx, "Panic while handling request",
				log.FieldError, fmt.Sprint(rec),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"stack", stack)

			InternalServerError(map[string]string{
				"error": fmt.Sprint(rec),
				"stack": stack,
			}, !s.production).Write(w)
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(r.Context(), err, !s.production).Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Route not found").Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"storage": "ok"}

	if s.transactions == nil {
		checks["storage"] = "not_configured"
	} else if err := s.transactions.Ping(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
	}
	if checks["storage"] != "ok" {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "checks", checks)
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
