package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"

	"expenses/internal/log"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
)

// DefaultCORSOrigin is the frontend dev server allowed when none is configured.
const DefaultCORSOrigin = "http://localhost:5174"

// Server serves the expenses JSON API.
type Server struct {
	http.Server
	svc      *services.ExpenseService
	logger   *log.Logger
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	corsOrigin string
	headers    security.HeadersConfig
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigin sets the single origin allowed to call the API from a browser.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithLogger sets the logger used for request and error logging.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer wires the routes and middleware chain.
func NewServer(addr string, svc *services.ExpenseService, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		started:    time.Now(),
		logger:     log.FromContext(context.Background()),
		detector:   security.NewDetector(),
		corsOrigin: DefaultCORSOrigin,
		headers:    security.DefaultHeadersConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses/summary", s.handleSummary)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	})

	// Outermost first: tracing sees every response, CORS answers preflights
	var handler http.Handler = mux
	handler = c.Handler(handler)
	handler = security.NewHeadersMiddleware(s.headers).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.WithComponent(log.ComponentHTTP).Info("Shutting down HTTP server",
		log.FieldOperation, log.OpShutdown,
		"total_requests", s.tracer.GetMetrics().TotalRequests,
		"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	return s.Server.Shutdown(ctx)
}
