package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/veritas/internal/config"
	"github.com/ashita-ai/veritas/internal/orchestrator"
	"github.com/ashita-ai/veritas/internal/review"
)

// Server is the claim-verification HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Config holds everything New needs to build the server.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Reviews      *review.Queue
	AppConfig    config.Config
	Logger       *slog.Logger
	Version      string

	// MCPServer, when non-nil, is mounted at /mcp over StreamableHTTP
	// alongside the plain JSON routes.
	MCPServer *mcpserver.MCPServer

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds a Server with every route registered and the middleware chain
// applied. Route surface and middleware ordering are grounded on
// internal/server/server.go, trimmed to the routes this service exposes —
// no auth middleware, since every route here is intentionally public (§6).
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := NewHandlers(HandlersDeps{
		Orchestrator: cfg.Orchestrator,
		Reviews:      cfg.Reviews,
		Config:       cfg.AppConfig,
		Logger:       logger,
		Version:      cfg.Version,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /config", h.HandleConfig)
	mux.HandleFunc("POST /verify", h.HandleVerify)
	mux.HandleFunc("GET /pending_reviews", h.HandlePendingReviews)
	mux.HandleFunc("GET /pending_reviews/{id}", h.HandlePendingReview)
	mux.HandleFunc("POST /review/{id}", h.HandleReviewDecision)

	// MCP StreamableHTTP transport, exposing the same pipeline as the
	// verify_claim tool (§6 enrichment, grounded on
	// internal/server/server.go's "/mcp" mounting pattern). No auth
	// wrapper, unlike the teacher: every route here is intentionally
	// public.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Middleware chain (outermost executes first): request ID -> tracing ->
	// security headers -> CORS -> logging -> recovery -> mux.
	var handler http.Handler = mux
	handler = recoveryMiddleware(logger, handler)
	handler = loggingMiddleware(logger, handler)
	handler = corsMiddleware(cfg.AppConfig.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.ReadTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   logger,
	}
}

// Handler returns the root HTTP handler, for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
