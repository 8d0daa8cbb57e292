package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
)

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func message(id string, labels []string, subject string, payload *gmailapi.MessagePart) *gmailapi.Message {
	payload.Headers = append(payload.Headers,
		&gmailapi.MessagePartHeader{Name: "Subject", Value: subject},
		&gmailapi.MessagePartHeader{Name: "From", Value: "Ana <ana@example.com>"},
		&gmailapi.MessagePartHeader{Name: "Date", Value: "Mon, 1 Jan 2024 10:00:00 +0000"},
	)
	return &gmailapi.Message{
		Id:       id,
		ThreadId: "t-" + id,
		LabelIds: labels,
		Snippet:  "snippet " + id,
		Payload:  payload,
	}
}

func newTestProvider(t *testing.T, h http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "ya29.test"})
	p, err := New(context.Background(), ts, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestListInbox(t *testing.T) {
	msgs := map[string]*gmailapi.Message{
		"m1": message("m1", []string{"INBOX", "UNREAD", "IMPORTANT"}, "Hello", &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>hi</p>")}},
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("hi")}},
			},
		}),
		"m2": message("m2", []string{"INBOX"}, "", &gmailapi.MessagePart{
			MimeType: "text/html",
			Body:     &gmailapi.MessagePartBody{Data: b64("<b>only html</b>")},
		}),
	}

	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.test", r.Header.Get("Authorization"))
		assert.Equal(t, "INBOX", r.URL.Query().Get("labelIds"))
		assert.Equal(t, "2", r.URL.Query().Get("maxResults"))
		writeJSON(w, gmailapi.ListMessagesResponse{Messages: []*gmailapi.Message{{Id: "m1"}, {Id: "m2"}}})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(w, msgs[r.PathValue("id")])
	})

	p := newTestProvider(t, mux)
	emails, err := p.ListInbox(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, int32(2), gets.Load())

	first := emails[0]
	assert.Equal(t, "m1", first.ID)
	assert.Equal(t, "t-m1", first.ThreadID)
	assert.Equal(t, "Hello", first.Subject)
	assert.Equal(t, "Ana <ana@example.com>", first.Sender)
	assert.Equal(t, "hi", first.Body)
	assert.False(t, first.IsRead)
	assert.True(t, first.IsImportant)

	second := emails[1]
	assert.Equal(t, "(no subject)", second.Subject)
	assert.Equal(t, "<b>only html</b>", second.Body)
	assert.True(t, second.IsRead)
}

func TestMarkRead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gmail/v1/users/me/messages/{id}/modify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "m1", r.PathValue("id"))
		var req gmailapi.ModifyMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"UNREAD"}, req.RemoveLabelIds)
		writeJSON(w, gmailapi.Message{Id: "m1"})
	})

	p := newTestProvider(t, mux)
	assert.NoError(t, p.MarkRead(context.Background(), "m1"))
}

func TestProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, gmailapi.Profile{EmailAddress: "me@example.com", MessagesTotal: 10, ThreadsTotal: 4})
	})

	p := newTestProvider(t, mux)
	prof, err := p.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", prof.Email)
	assert.Equal(t, int64(10), prof.MessagesTotal)
	assert.Equal(t, int64(4), prof.ThreadsTotal)
}

func TestErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	})

	p := newTestProvider(t, mux)

	_, err := p.Profile(context.Background())
	assert.True(t, mailbox.IsAuthError(err))

	_, err = p.GetEmail(context.Background(), "gone")
	assert.ErrorIs(t, err, mailbox.ErrNotFound)
}

func TestExtractBodySkipsAttachments(t *testing.T) {
	var plain, html string
	extractBody(&gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Filename: "notes.txt", Body: &gmailapi.MessagePartBody{Data: b64("attached")}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: strings.TrimRight(b64("body text"), "=")}},
		},
	}, &plain, &html, 0)

	assert.Equal(t, "body text", plain)
	assert.Empty(t, html)
}
