package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

func newTestAnalyzer(t *testing.T, answer string, status int) (*Analyzer, *apiRequest) {
	t.Helper()
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(apiResponse{
			Type:    "message",
			Role:    "assistant",
			Content: []apiContentBlock{{Type: "text", Text: answer}},
		})
	}))
	t.Cleanup(srv.Close)

	a := New("sk-test", "", 0)
	a.endpoint = srv.URL
	return a, &got
}

var invoice = model.Email{
	ID:      "m1",
	Subject: "Invoice #42",
	Sender:  "billing@example.com",
	Body:    "Please pay by Friday.",
	Labels:  []string{"INBOX", "UNREAD"},
}

func TestAnalyzeEmail(t *testing.T) {
	answer := "```json\n" + `{"summary":"Invoice due Friday","sentiment":"Neutral","urgency":"high",` +
		`"category":"finance","recommended_actions":["Pay the invoice"]}` + "\n```"
	a, req := newTestAnalyzer(t, answer, http.StatusOK)

	got, err := a.AnalyzeEmail(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, model.Analysis{
		Summary:            "Invoice due Friday",
		Sentiment:          "neutral",
		Urgency:            "high",
		Category:           "finance",
		RecommendedActions: []string{"Pay the invoice"},
	}, got)

	assert.Equal(t, defaultModel, req.Model)
	require.Len(t, req.Messages, 1)
	prompt := req.Messages[0].Content[0].Text
	assert.Contains(t, prompt, "Subject: Invoice #42")
	assert.Contains(t, prompt, "Please pay by Friday.")
}

func TestAnalyzeEmailFreeTextAnswer(t *testing.T) {
	a, _ := newTestAnalyzer(t, "This is an invoice reminder.", http.StatusOK)

	got, err := a.AnalyzeEmail(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, FallbackAnalysis("This is an invoice reminder."), got)
}

func TestAnalyzeEmailAPIError(t *testing.T) {
	a, _ := newTestAnalyzer(t, "", http.StatusServiceUnavailable)

	got, err := a.AnalyzeEmail(context.Background(), invoice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Overloaded")
	assert.Equal(t, "Analysis unavailable", got.Summary)
	assert.Equal(t, model.SentimentNeutral, got.Sentiment)
	assert.Equal(t, model.UrgencyMedium, got.Urgency)
	assert.Equal(t, model.CategoryOther, got.Category)
	assert.Empty(t, got.RecommendedActions)
}

func TestAnalyzeEmailNotConfigured(t *testing.T) {
	a := New("", "", 0)
	assert.False(t, a.Enabled())

	got, err := a.AnalyzeEmail(context.Background(), invoice)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, FallbackAnalysis(""), got)
}

func TestInsights(t *testing.T) {
	answer := `Here you go: {"main_topics":["billing"],"frequent_senders":["billing@example.com"],` +
		`"communication_patterns":"Mostly invoices","organization_suggestions":["Create a Finance label"]}`
	a, req := newTestAnalyzer(t, answer, http.StatusOK)

	emails := make([]model.Email, 15)
	for i := range emails {
		emails[i] = invoice
	}

	got, err := a.Insights(context.Background(), emails)
	require.NoError(t, err)
	assert.Equal(t, []string{"billing"}, got.MainTopics)
	assert.Equal(t, "Mostly invoices", got.CommunicationPatterns)
	assert.Equal(t, []string{"Create a Finance label"}, got.OrganizationSuggestions)

	prompt := req.Messages[0].Content[0].Text
	assert.Equal(t, maxInsightEmails, strings.Count(prompt, "Subject: Invoice #42"))
}

func TestInsightsFallback(t *testing.T) {
	a, _ := newTestAnalyzer(t, "no json here", http.StatusOK)

	got, err := a.Insights(context.Background(), []model.Email{invoice})
	require.NoError(t, err)
	assert.Equal(t, FallbackInsights(), got)

	empty, err := a.Insights(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty.MainTopics)
	assert.Empty(t, empty.CommunicationPatterns)
}
