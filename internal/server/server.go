// Package server implements the backend REST service: the OAuth code
// exchange, the session bearer tokens and the inbox and AI routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/store"
	"github.com/memakingbeats/sentient-inbox-main/internal/token"
)

// Analyzer produces AI analyses. Implementations return a usable fallback
// value together with any error.
type Analyzer interface {
	AnalyzeEmail(ctx context.Context, e model.Email) (model.Analysis, error)
	Insights(ctx context.Context, emails []model.Email) (model.Insights, error)
}

// Server holds the dependencies of every route.
type Server struct {
	cfg       Config
	oauth     *oauth2.Config
	store     store.Store
	issuer    *token.Issuer
	mailboxes mailbox.Factory
	analyzer  Analyzer

	// analyses collapses concurrent analysis requests for one message.
	analyses singleflight.Group

	now func() time.Time
}

// New wires a server. cfg must have passed Validate.
func New(
	cfg Config,
	st store.Store,
	issuer *token.Issuer,
	mailboxes mailbox.Factory,
	analyzer Analyzer,
) *Server {
	return &Server{
		cfg:       cfg,
		oauth:     cfg.OAuth2(),
		store:     st,
		issuer:    issuer,
		mailboxes: mailboxes,
		analyzer:  analyzer,
		now:       time.Now,
	}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	authed := newBearerMiddleware(s.issuer, s.store)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /auth/google", s.handleExchange)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.Handle("POST /auth/logout", protect(s.handleLogout))
	mux.Handle("GET /auth/me", protect(s.handleMe))

	mux.Handle("GET /emails", protect(s.handleListEmails))
	mux.Handle("GET /emails/{$}", protect(s.handleListEmails))
	mux.Handle("POST /emails/{id}/read", protect(s.handleMarkRead))
	mux.Handle("GET /emails/{id}/analysis", protect(s.handleAnalysis))

	mux.Handle("GET /ai/insights", protect(s.handleInsights))

	return ChainMiddleware(mux,
		NewCORSMiddleware(s.cfg.CORSOrigins()),
		NewLoggerMiddleware("http"),
		NewRecoverMiddleware("http"),
	)
}

// SweepSessions deletes sessions whose bearer tokens have expired, once
// immediately and then every interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := s.store.PurgeSessions(ctx, s.now().Add(-s.cfg.JWTTTL))
		switch {
		case err != nil && ctx.Err() == nil:
			log.LogWarnWithFields("sessions", "sweep failed", map[string]any{"error": err.Error()})
		case n > 0:
			log.LogInfoWithFields("sessions", "expired sessions removed", map[string]any{"count": n})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// HTTPServer manages the HTTP server lifecycle
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates a new HTTP server with the given handler and address
func NewHTTPServer(handler http.Handler, addr string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Stop is called.
func (h *HTTPServer) Start() error {
	log.LogInfoWithFields("http", "HTTP server starting", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	log.LogInfoWithFields("http", "HTTP server stopping", map[string]any{
		"addr": h.server.Addr,
	})

	if err := h.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.LogInfoWithFields("http", "HTTP server stopped", map[string]any{
		"addr": h.server.Addr,
	})
	return nil
}
