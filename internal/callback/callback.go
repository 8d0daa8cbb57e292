// Package callback serves the OAuth redirect target. It runs on loopback
// inside the dashboard process, so the consent window and the dashboard
// share one origin.
package callback

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
)

//go:embed templates/close.html
var closePage []byte

//go:embed templates/entry.html
var entryPage []byte

// Reporter surfaces callback errors to the dashboard.
type Reporter interface {
	Report(error)
}

// Handler receives the provider redirect and relays it to the bridge.
type Handler struct {
	bus      *auth.MessageBus
	origin   string
	path     string
	reporter Reporter
	mux      *http.ServeMux
}

// NewHandler builds the handler for redirectURI. reporter may be nil.
func NewHandler(redirectURI string, bus *auth.MessageBus, reporter Reporter) (*Handler, error) {
	origin, err := auth.OriginOf(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("callback: %w", err)
	}
	u, _ := url.Parse(redirectURI)
	path := u.Path
	if path == "" || path == "/" {
		return nil, fmt.Errorf("callback: redirect uri %q needs a path", redirectURI)
	}

	h := &Handler{
		bus:      bus,
		origin:   origin,
		path:     path,
		reporter: reporter,
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("GET "+path, h.handleCallback)
	h.mux.HandleFunc("GET /{$}", h.handleEntry)
	return h, nil
}

// Origin is the origin messages are stamped with and sent to.
func (h *Handler) Origin() string { return h.origin }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	token := q.Get("token")

	// The backend could not exchange the code for us; hand the failure to
	// the attempt that owns state so it ends now.
	if reason := q.Get("error"); reason == auth.CallbackErrorExchangeFailed && q.Get("state") != "" {
		log.LogWarnWithFields("callback", "backend exchange failed", map[string]any{
			"error": reason,
		})
		h.post(w, auth.Message{
			Type:   auth.MessageTypeAuthError,
			Error:  reason,
			State:  q.Get("state"),
			Origin: h.origin,
		})
		return
	}

	if code == "" && token == "" {
		err := auth.ErrMalformedCallback
		if reason := q.Get("error"); reason != "" {
			err = fmt.Errorf("%w: provider returned %s", auth.ErrMalformedCallback, reason)
		}
		log.LogWarnWithFields("callback", "callback without authorization code", map[string]any{
			"error": err.Error(),
		})
		if h.reporter != nil {
			h.reporter.Report(err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.post(w, auth.Message{
		Type:   auth.MessageTypeAuthSuccess,
		Code:   code,
		Token:  token,
		State:  q.Get("state"),
		Origin: h.origin,
	})
}

// post relays msg to the dashboard and serves the page that closes the
// window. Delivery is asynchronous; the page closes whether or not anyone
// listens.
func (h *Handler) post(w http.ResponseWriter, msg auth.Message) {
	if err := h.bus.Post(msg, h.origin); err != nil {
		log.LogErrorWithFields("callback", "posting auth message", map[string]any{
			"error": err.Error(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(closePage)
}

func (h *Handler) handleEntry(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(entryPage)
}

// Server owns the loopback listener for a Handler.
type Server struct {
	server *http.Server
	ln     net.Listener
}

// Listen binds the host:port of the handler's origin.
func Listen(h *Handler) (*Server, error) {
	u, _ := url.Parse(h.origin)
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", u.Host, err)
	}
	return &Server{
		server: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln: ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	log.LogInfoWithFields("callback", "callback server starting", map[string]any{
		"addr": s.Addr(),
	})
	if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
