package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	apiURL           = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"

	// maxBodyChars bounds the message body sent for analysis.
	maxBodyChars = 8000
	// maxInsightEmails is how many messages feed an insights prompt.
	maxInsightEmails = 10

	analysisUnavailable = "Analysis unavailable"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("AI analyzer is not configured")

// Analyzer asks Claude to summarise messages. Every method returns a usable
// fallback value alongside any error, so callers can always render
// something.
type Analyzer struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
}

// New creates an analyzer. An empty apiKey yields an analyzer that only
// returns fallbacks.
func New(apiKey, modelName string, maxTokens int) *Analyzer {
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Analyzer{
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		endpoint:  apiURL,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether an API key is set.
func (a *Analyzer) Enabled() bool {
	return a.apiKey != ""
}

// FallbackAnalysis is served when the model cannot be reached. summary
// defaults to "Analysis unavailable".
func FallbackAnalysis(summary string) model.Analysis {
	if summary == "" {
		summary = analysisUnavailable
	}
	return model.Analysis{
		Summary:            summary,
		Sentiment:          model.SentimentNeutral,
		Urgency:            model.UrgencyMedium,
		Category:           model.CategoryOther,
		RecommendedActions: []string{},
	}
}

// FallbackInsights is served when insights cannot be generated.
func FallbackInsights() model.Insights {
	return model.Insights{
		MainTopics:              []string{},
		FrequentSenders:         []string{},
		CommunicationPatterns:   analysisUnavailable,
		OrganizationSuggestions: []string{},
	}
}

// AnalyzeEmail summarises one message. A model answer that is not the
// expected JSON becomes the summary of a neutral analysis.
func (a *Analyzer) AnalyzeEmail(ctx context.Context, e model.Email) (model.Analysis, error) {
	if !a.Enabled() {
		return FallbackAnalysis(""), ErrNotConfigured
	}

	text, err := a.complete(ctx, analysisSystemPrompt, emailPrompt(e))
	if err != nil {
		return FallbackAnalysis(""), err
	}

	var out model.Analysis
	if err := decodeJSONObject(text, &out); err != nil {
		return FallbackAnalysis(strings.TrimSpace(text)), nil
	}
	return normalizeAnalysis(out), nil
}

// Insights describes topics, senders and patterns across recent messages.
func (a *Analyzer) Insights(ctx context.Context, emails []model.Email) (model.Insights, error) {
	if len(emails) == 0 {
		return model.Insights{
			MainTopics:              []string{},
			FrequentSenders:         []string{},
			OrganizationSuggestions: []string{},
		}, nil
	}
	if !a.Enabled() {
		return FallbackInsights(), ErrNotConfigured
	}

	text, err := a.complete(ctx, insightsSystemPrompt, insightsPrompt(emails))
	if err != nil {
		return FallbackInsights(), err
	}

	var out model.Insights
	if err := decodeJSONObject(text, &out); err != nil {
		return FallbackInsights(), nil
	}
	return normalizeInsights(out), nil
}

const analysisSystemPrompt = `You analyse a single email for a busy reader.
Answer with one JSON object and nothing else:
{"summary": "...", "sentiment": "positive|negative|neutral", "urgency": "high|medium|low",
"category": "work|personal|finance|newsletter|spam|other", "recommended_actions": ["..."]}`

const insightsSystemPrompt = `You look for patterns across a batch of emails.
Answer with one JSON object and nothing else:
{"main_topics": ["..."], "frequent_senders": ["..."], "communication_patterns": "...",
"organization_suggestions": ["..."]}`

func emailPrompt(e model.Email) string {
	body := e.Body
	if body == "" {
		body = e.Snippet
	}
	if r := []rune(body); len(r) > maxBodyChars {
		body = string(r[:maxBodyChars])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n", e.Subject)
	fmt.Fprintf(&sb, "From: %s\n", e.Sender)
	fmt.Fprintf(&sb, "Date: %s\n", e.Date)
	if len(e.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(e.Labels, ", "))
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	return sb.String()
}

func insightsPrompt(emails []model.Email) string {
	if len(emails) > maxInsightEmails {
		emails = emails[:maxInsightEmails]
	}

	parts := make([]string, 0, len(emails))
	for _, e := range emails {
		body := e.Body
		if body == "" {
			body = e.Snippet
		}
		if r := []rune(body); len(r) > maxBodyChars/maxInsightEmails {
			body = string(r[:maxBodyChars/maxInsightEmails])
		}
		parts = append(parts, fmt.Sprintf("Subject: %s\nFrom: %s\n%s", e.Subject, e.Sender, body))
	}
	return strings.Join(parts, "\n\n")
}

// decodeJSONObject unmarshals the outermost {...} of text, which tolerates
// code fences and short preambles around the answer.
func decodeJSONObject(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in model answer")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}

func normalizeAnalysis(a model.Analysis) model.Analysis {
	if a.Summary == "" {
		a.Summary = analysisUnavailable
	}
	a.Sentiment = strings.ToLower(a.Sentiment)
	if a.Sentiment == "" {
		a.Sentiment = model.SentimentNeutral
	}
	a.Urgency = strings.ToLower(a.Urgency)
	if a.Urgency == "" {
		a.Urgency = model.UrgencyMedium
	}
	a.Category = strings.ToLower(a.Category)
	if a.Category == "" {
		a.Category = model.CategoryOther
	}
	if a.RecommendedActions == nil {
		a.RecommendedActions = []string{}
	}
	return a
}

func normalizeInsights(in model.Insights) model.Insights {
	if in.MainTopics == nil {
		in.MainTopics = []string{}
	}
	if in.FrequentSenders == nil {
		in.FrequentSenders = []string{}
	}
	if in.OrganizationSuggestions == nil {
		in.OrganizationSuggestions = []string{}
	}
	return in
}

// complete makes a single request to the Claude Messages API and returns
// the concatenated text blocks.
func (a *Analyzer) complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages: []apiMessage{{
			Role:    "user",
			Content: []apiContentBlock{{Type: "text", Text: prompt}},
		}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, a.endpoint, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
