package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	jsonwriter "github.com/memakingbeats/sentient-inbox-main/internal/json"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/store"
)

const (
	defaultMaxResults = 50
	maxMaxResults     = 500

	defaultInsightEmails = 50
	minInsightEmails     = 10
	maxInsightEmails     = 200
)

// intQuery reads a bounded integer query parameter.
func intQuery(r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// handleListEmails serves the inbox, newest first, and refreshes the cache.
// When the provider is unreachable the cached inbox is served instead.
func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	limit, ok := intQuery(r, "max_results", defaultMaxResults, 1, maxMaxResults)
	if !ok {
		jsonwriter.WriteBadRequest(w, "max_results must be between 1 and 500")
		return
	}

	emails, err := s.listInbox(r.Context(), sess, limit)
	if err != nil {
		writeMailboxError(w, err)
		return
	}
	_ = jsonwriter.Write(w, emails)
}

func (s *Server) listInbox(ctx context.Context, sess *model.AccountSession, limit int) ([]model.Email, error) {
	acct := account(sess)

	mb, err := s.mailbox(ctx, sess)
	if err != nil {
		return nil, err
	}
	emails, err := mb.ListInbox(ctx, limit)
	if err == nil {
		if cacheErr := s.store.ReplaceEmails(ctx, acct, emails); cacheErr != nil {
			log.LogWarnWithFields("cache", "caching inbox", map[string]any{
				"account": acct,
				"error":   cacheErr.Error(),
			})
		}
		return emails, nil
	}

	if mailbox.IsAuthError(err) {
		return nil, err
	}
	cached, cacheErr := s.store.GetEmails(ctx, acct, limit)
	if cacheErr != nil || len(cached) == 0 {
		return nil, err
	}
	log.LogWarnWithFields("mailbox", "provider unavailable, serving cached inbox", map[string]any{
		"account": acct,
		"error":   err.Error(),
	})
	return cached, nil
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	id := r.PathValue("id")

	mb, err := s.mailbox(r.Context(), sess)
	if err != nil {
		writeMailboxError(w, err)
		return
	}
	if err := mb.MarkRead(r.Context(), id); err != nil {
		writeMailboxError(w, err)
		return
	}
	if err := s.store.MarkEmailRead(r.Context(), account(sess), id); err != nil {
		log.LogWarnWithFields("cache", "marking cached email read", map[string]any{
			"id":    id,
			"error": err.Error(),
		})
	}
	_ = jsonwriter.Write(w, model.MessageResponse{Message: "Email marked as read"})
}

// handleAnalysis serves the cached analysis of a message or asks the
// analyzer for one. Fallback analyses are served but never cached.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	acct := account(sess)
	id := r.PathValue("id")

	if cached, err := s.store.GetAnalysis(r.Context(), acct, id); err == nil {
		_ = jsonwriter.Write(w, cached)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.LogWarnWithFields("cache", "reading cached analysis", map[string]any{
			"id":    id,
			"error": err.Error(),
		})
	}

	// The first caller's request may go away; the shared analysis must not.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.analyses.Do(acct+"/"+id, func() (any, error) {
		e, err := s.email(ctx, sess, id)
		if err != nil {
			return nil, err
		}

		a, err := s.analyzer.AnalyzeEmail(ctx, *e)
		if err != nil {
			log.LogWarnWithFields("ai", "analysis fell back", map[string]any{
				"id":    id,
				"error": err.Error(),
			})
			return a, nil
		}
		if err := s.store.SaveAnalysis(ctx, acct, id, a); err != nil {
			log.LogWarnWithFields("cache", "caching analysis", map[string]any{
				"id":    id,
				"error": err.Error(),
			})
		}
		return a, nil
	})
	if err != nil {
		writeMailboxError(w, err)
		return
	}
	_ = jsonwriter.Write(w, v.(model.Analysis))
}

// email returns a message from the cache, falling back to the provider.
func (s *Server) email(ctx context.Context, sess *model.AccountSession, id string) (*model.Email, error) {
	if e, err := s.store.GetEmail(ctx, account(sess), id); err == nil && e.Body != "" {
		return e, nil
	}
	mb, err := s.mailbox(ctx, sess)
	if err != nil {
		return nil, err
	}
	return mb.GetEmail(ctx, id)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	limit, ok := intQuery(r, "max_emails", defaultInsightEmails, minInsightEmails, maxInsightEmails)
	if !ok {
		jsonwriter.WriteBadRequest(w, "max_emails must be between 10 and 200")
		return
	}

	emails, err := s.listInbox(r.Context(), sess, limit)
	if err != nil {
		writeMailboxError(w, err)
		return
	}

	insights, err := s.analyzer.Insights(r.Context(), emails)
	if err != nil {
		log.LogWarnWithFields("ai", "insights fell back", map[string]any{"error": err.Error()})
	}
	_ = jsonwriter.Write(w, insights)
}
