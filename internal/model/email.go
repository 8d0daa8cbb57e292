package model

import "time"

// Gmail system labels the dashboard cares about.
const (
	LabelInbox      = "INBOX"
	LabelUnread     = "UNREAD"
	LabelImportant  = "IMPORTANT"
	LabelAttachment = "ATTACHMENT"
)

// Email is one inbox message as served by the backend.
type Email struct {
	// ID is the provider message identifier.
	ID string `json:"id" db:"id"`

	// ThreadID groups replies in the provider's conversation view.
	ThreadID string `json:"threadId" db:"thread_id"`

	Subject string `json:"subject" db:"subject"`
	Sender  string `json:"sender" db:"sender"`

	// Date is the raw Date header; providers do not agree on its format.
	Date string `json:"date" db:"date"`

	// Body is the plain-text body, empty when the message has none.
	Body    string   `json:"body" db:"body"`
	Snippet string   `json:"snippet" db:"snippet"`
	Labels  []string `json:"labels" db:"-"`

	IsRead         bool `json:"isRead" db:"is_read"`
	IsImportant    bool `json:"isImportant" db:"is_important"`
	HasAttachments bool `json:"hasAttachments" db:"has_attachments"`
}

// ApplyLabels derives the flag fields from Labels.
func (e *Email) ApplyLabels() {
	e.IsRead = !hasLabel(e.Labels, LabelUnread)
	e.IsImportant = hasLabel(e.Labels, LabelImportant)
	e.HasAttachments = hasLabel(e.Labels, LabelAttachment)
}

// MarkRead drops the UNREAD label and updates the flags.
func (e *Email) MarkRead() {
	labels := e.Labels[:0:0]
	for _, l := range e.Labels {
		if l != LabelUnread {
			labels = append(labels, l)
		}
	}
	e.Labels = labels
	e.IsRead = true
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// Analysis is the AI summary of one message.
type Analysis struct {
	Summary            string   `json:"summary"`
	Sentiment          string   `json:"sentiment"`
	Urgency            string   `json:"urgency"`
	Category           string   `json:"category"`
	RecommendedActions []string `json:"recommended_actions"`
}

// Fallback analysis values used when the model is unavailable or answers
// with something that is not the expected JSON.
const (
	SentimentNeutral = "neutral"
	UrgencyMedium    = "medium"
	CategoryOther    = "other"
)

// Insights summarise a batch of recent messages.
type Insights struct {
	MainTopics              []string `json:"main_topics"`
	FrequentSenders         []string `json:"frequent_senders"`
	CommunicationPatterns   string   `json:"communication_patterns"`
	OrganizationSuggestions []string `json:"organization_suggestions"`
}

// Profile describes the signed-in mailbox.
type Profile struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
}

// TokenResponse is returned by the backend code exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeRequest is the body of POST /auth/google.
type ExchangeRequest struct {
	Code        string `json:"code"`
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Health is the body of GET /health.
type Health struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time,omitempty"`
}
