package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
	jsonwriter "github.com/memakingbeats/sentient-inbox-main/internal/json"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

const serviceName = "Sentient Inbox API"

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	_ = jsonwriter.Write(w, model.MessageResponse{Message: serviceName})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = jsonwriter.Write(w, model.Health{Status: "healthy", Time: s.now().UTC()})
}

// handleExchange implements POST /auth/google: it trades an authorization
// code for provider tokens, stores them and answers with a session token.
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req model.ExchangeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		jsonwriter.WriteBadRequest(w, "Missing authorization code")
		return
	}
	if req.ClientID != "" && req.ClientID != s.oauth.ClientID {
		jsonwriter.WriteBadRequest(w, "Unknown client_id")
		return
	}

	resp, err := s.exchange(r.Context(), req.Code, req.RedirectURI)
	if err != nil {
		writeExchangeError(w, err)
		return
	}
	_ = jsonwriter.Write(w, resp)
}

// handleCallback implements the token-mode redirect target: the provider
// sends the browser here, the code is exchanged server-side and the browser
// continues to the dashboard callback carrying the session token.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")

	dest, err := url.Parse(strings.TrimRight(s.cfg.DashboardURL, "/") + "/auth/callback")
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "Invalid dashboard URL")
		return
	}
	params := url.Values{}
	if state != "" {
		params.Set("state", state)
	}

	switch {
	case q.Get("error") != "":
		params.Set("error", q.Get("error"))
	case code == "":
		params.Set("error", "missing_code")
	default:
		resp, err := s.exchange(r.Context(), code, "")
		if err != nil {
			log.LogWarnWithFields("auth", "callback exchange failed", map[string]any{"error": err.Error()})
			params.Set("error", auth.CallbackErrorExchangeFailed)
		} else {
			params.Set("token", resp.AccessToken)
		}
	}

	dest.RawQuery = params.Encode()
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

var errExchange = errors.New("code exchange failed")

func writeExchangeError(w http.ResponseWriter, err error) {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorCode
		if msg == "" {
			msg = "authorization code rejected"
		}
		jsonwriter.WriteBadRequest(w, "Error exchanging code: "+msg)
		return
	}
	if errors.Is(err, errExchange) {
		jsonwriter.WriteBadRequest(w, "Error exchanging code")
		return
	}
	jsonwriter.WriteInternalServerError(w, "Failed to create session")
}

// exchange swaps code for provider tokens and opens a session. redirectURI
// must match the one used to obtain code; empty means the configured one.
func (s *Server) exchange(ctx context.Context, code, redirectURI string) (model.TokenResponse, error) {
	var opts []oauth2.AuthCodeOption
	if redirectURI != "" && redirectURI != s.oauth.RedirectURL {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	tok, err := s.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		log.LogWarnWithFields("auth", "code exchange rejected", map[string]any{"error": err.Error()})
		return model.TokenResponse{}, fmt.Errorf("%w: %w", errExchange, err)
	}
	if tok.AccessToken == "" {
		return model.TokenResponse{}, fmt.Errorf("%w: provider returned no access token", errExchange)
	}

	sess, err := s.store.CreateSession(ctx, model.AccountSession{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("creating session: %w", err)
	}

	// The profile is best effort: a session without an address still works,
	// its cache is keyed by session ID instead.
	if prof, err := s.profile(ctx, &sess); err != nil {
		log.LogWarnWithFields("auth", "fetching profile after exchange", map[string]any{
			"session": sess.ID,
			"error":   err.Error(),
		})
	} else if sess.Email == "" {
		sess.Email = prof.Email
	}

	signed, _, err := s.issuer.Issue(sess.ID, sess.Email)
	if err != nil {
		return model.TokenResponse{}, err
	}

	log.LogInfoWithFields("auth", "session created", map[string]any{
		"session": sess.ID,
		"email":   sess.Email,
	})
	return model.TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.issuer.TTL() / time.Second),
	}, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	if err := s.store.DeleteSession(r.Context(), sess.ID); err != nil {
		log.LogErrorWithFields("auth", "deleting session", map[string]any{
			"session": sess.ID,
			"error":   err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to log out")
		return
	}
	log.LogInfoWithFields("auth", "session deleted", map[string]any{"session": sess.ID})
	_ = jsonwriter.Write(w, model.MessageResponse{Message: "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	prof, err := s.profile(r.Context(), sess)
	if err != nil {
		writeMailboxError(w, err)
		return
	}
	_ = jsonwriter.Write(w, prof)
}

// profile fetches the mailbox profile and records the address on the
// session when it changed.
func (s *Server) profile(ctx context.Context, sess *model.AccountSession) (*model.Profile, error) {
	mb, err := s.mailbox(ctx, sess)
	if err != nil {
		return nil, err
	}
	prof, err := mb.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if prof.Email != "" && prof.Email != sess.Email {
		if err := s.store.SetSessionEmail(ctx, sess.ID, prof.Email); err != nil {
			return nil, fmt.Errorf("recording session email: %w", err)
		}
		sess.Email = prof.Email
	}
	return prof, nil
}

// mailbox opens the provider for a session.
func (s *Server) mailbox(ctx context.Context, sess *model.AccountSession) (mailbox.Provider, error) {
	ts := newPersistingTokenSource(ctx, s.oauth, s.store, *sess)
	return s.mailboxes(ctx, ts, sess.Email)
}

// account keys the per-user caches.
func account(sess *model.AccountSession) string {
	if sess.Email != "" {
		return sess.Email
	}
	return sess.ID
}

// writeMailboxError maps provider errors onto HTTP statuses. A rejected
// provider token is a 401 so the dashboard treats the session as expired.
func writeMailboxError(w http.ResponseWriter, err error) {
	switch {
	case mailbox.IsAuthError(err):
		jsonwriter.WriteUnauthorized(w, "Mailbox access was revoked or expired")
	case errors.Is(err, mailbox.ErrNotFound):
		jsonwriter.WriteNotFound(w, "Email not found")
	default:
		log.LogErrorWithFields("mailbox", "provider call failed", map[string]any{"error": err.Error()})
		jsonwriter.WriteBadGateway(w, "Mailbox provider error")
	}
}
