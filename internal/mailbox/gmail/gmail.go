// Package gmail is the Gmail API mailbox driver.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

const (
	driverName = "gmail"
	me         = "me"

	// fetchConcurrency bounds parallel messages.get calls.
	fetchConcurrency = 8
)

// Provider implements mailbox.Provider over the Gmail REST API.
type Provider struct {
	svc *gmailapi.Service
}

// New opens the Gmail service for the given token source.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Provider, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &Provider{svc: svc}, nil
}

// Factory adapts New to mailbox.Factory. opts are appended to every
// service, which lets tests point the driver at a fake endpoint.
func Factory(opts ...option.ClientOption) mailbox.Factory {
	return func(ctx context.Context, ts oauth2.TokenSource, _ string) (mailbox.Provider, error) {
		return New(ctx, ts, opts...)
	}
}

// Profile returns the mailbox address and counters.
func (p *Provider) Profile(ctx context.Context) (*model.Profile, error) {
	prof, err := p.svc.Users.GetProfile(me).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err, "getting profile")
	}
	return &model.Profile{
		Email:         prof.EmailAddress,
		MessagesTotal: prof.MessagesTotal,
		ThreadsTotal:  prof.ThreadsTotal,
	}, nil
}

// ListInbox lists INBOX and fetches every message in parallel, keeping the
// provider's newest-first order.
func (p *Provider) ListInbox(ctx context.Context, max int) ([]model.Email, error) {
	resp, err := p.svc.Users.Messages.List(me).
		LabelIds(model.LabelInbox).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError(err, "listing messages")
	}

	emails := make([]model.Email, len(resp.Messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, ref := range resp.Messages {
		g.Go(func() error {
			msg, err := p.svc.Users.Messages.Get(me, ref.Id).Format("full").Context(gctx).Do()
			if err != nil {
				return wrapError(err, "getting message "+ref.Id)
			}
			emails[i] = parseMessage(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return emails, nil
}

// GetEmail fetches one message in full.
func (p *Provider) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	msg, err := p.svc.Users.Messages.Get(me, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err, "getting message "+id)
	}
	e := parseMessage(msg)
	return &e, nil
}

// MarkRead removes UNREAD from the message.
func (p *Provider) MarkRead(ctx context.Context, id string) error {
	_, err := p.svc.Users.Messages.Modify(me, id, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{model.LabelUnread},
	}).Context(ctx).Do()
	if err != nil {
		return wrapError(err, "marking "+id+" as read")
	}
	return nil
}

func parseMessage(msg *gmailapi.Message) model.Email {
	e := model.Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
		Subject:  "(no subject)",
		Sender:   "Unknown",
	}
	if e.Labels == nil {
		e.Labels = []string{}
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "subject":
				if h.Value != "" {
					e.Subject = h.Value
				}
			case "from":
				if h.Value != "" {
					e.Sender = h.Value
				}
			case "date":
				e.Date = h.Value
			}
		}

		var plain, html string
		extractBody(msg.Payload, &plain, &html, 0)
		e.Body = plain
		if e.Body == "" {
			e.Body = html
		}
	}

	e.ApplyLabels()
	return e
}

// extractBody walks the MIME tree and keeps the first text/plain and
// text/html parts it finds.
func extractBody(part *gmailapi.MessagePart, plain, html *string, depth int) {
	if part == nil || depth > 10 {
		return
	}

	if part.Body != nil && part.Body.Data != "" && part.Filename == "" {
		data := decode(part.Body.Data)
		switch {
		case strings.HasPrefix(part.MimeType, "text/plain") && *plain == "":
			*plain = data
		case strings.HasPrefix(part.MimeType, "text/html") && *html == "":
			*html = data
		case part.MimeType == "" && *plain == "":
			*plain = data
		}
	}

	for _, child := range part.Parts {
		extractBody(child, plain, html, depth+1)
	}
}

func decode(data string) string {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(b)
}

func wrapError(err error, action string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return &mailbox.AuthError{Driver: driverName, Message: apiErr.Message}
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", action, mailbox.ErrNotFound)
		}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &mailbox.AuthError{Driver: driverName, Message: retrieveErr.Error()}
	}
	return fmt.Errorf("%s: %w", action, err)
}
