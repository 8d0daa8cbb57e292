package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "cid", "http://localhost:5173/auth/callback", staticToken(token))
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/google", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req model.ExchangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ABC123", req.Code)
		assert.Equal(t, "cid", req.ClientID)
		assert.Equal(t, "http://localhost:5173/auth/callback", req.RedirectURI)

		_ = json.NewEncoder(w).Encode(model.TokenResponse{AccessToken: "tok-xyz", TokenType: "bearer"})
	}, "")

	tok, err := c.ExchangeCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", tok)
}

func TestExchangeCodeRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad_request","message":"invalid_grant"}`))
	}, "")

	_, err := c.ExchangeCode(context.Background(), "nope")
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "invalid_grant", se.Detail)
}

func TestListEmailsSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-xyz", r.Header.Get("Authorization"))
		assert.Equal(t, "/emails/", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("max_results"))
		_ = json.NewEncoder(w).Encode([]model.Email{{ID: "m1", Subject: "Hi"}})
	}, "tok-xyz")

	emails, err := c.ListEmails(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "Hi", emails[0].Subject)
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"token expired"}`))
	}, "stale")

	_, err := c.Analysis(context.Background(), "m1")
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "token expired")
}

func TestSignedOutFailsWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, "")

	err := c.MarkRead(context.Background(), "m1")
	assert.True(t, IsAuthError(err))
	assert.Zero(t, hits.Load())
}

func TestMarkReadEscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails/a%2Fb/read", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(model.MessageResponse{Message: "ok"})
	}, "tok")

	assert.NoError(t, c.MarkRead(context.Background(), "a/b"))
}

func TestRetriesOnRateLimit(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(model.Insights{MainTopics: []string{"work"}})
	}, "tok")

	in, err := c.Insights(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, in.MainTopics)
	assert.Equal(t, int32(2), hits.Load())
}

func TestProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(model.Profile{Email: "me@example.com", MessagesTotal: 3})
	}, "tok")

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", p.Email)
	assert.Equal(t, int64(3), p.MessagesTotal)
}

func TestLogout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(model.MessageResponse{Message: "Logged out"})
	}, "tok")

	assert.NoError(t, c.Logout(context.Background()))
}
