// Package imap is the IMAP mailbox driver. It signs in with the account's
// OAuth access token over SASL OAUTHBEARER, so it works against Gmail's
// IMAP endpoint as well as any server that accepts Google tokens.
package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"

	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

const (
	driverName = "imap"
	inbox      = "INBOX"
	snippetLen = 140
)

// Config addresses the IMAP server.
type Config struct {
	Host string
	Port int
	// TLS dials implicit TLS; otherwise STARTTLS is used.
	TLS bool
	// Username overrides the account address when set.
	Username string
}

// Provider implements mailbox.Provider over one IMAP account. Every call
// opens its own connection.
type Provider struct {
	cfg      Config
	ts       oauth2.TokenSource
	username string
}

// New creates a provider for account.
func New(cfg Config, ts oauth2.TokenSource, account string) *Provider {
	username := cfg.Username
	if username == "" {
		username = account
	}
	return &Provider{cfg: cfg, ts: ts, username: username}
}

// Factory adapts New to mailbox.Factory.
func Factory(cfg Config) mailbox.Factory {
	return func(_ context.Context, ts oauth2.TokenSource, account string) (mailbox.Provider, error) {
		if cfg.Host == "" {
			return nil, fmt.Errorf("imap host is not configured")
		}
		return New(cfg, ts, account), nil
	}
}

func (p *Provider) connect(ctx context.Context) (*imapclient.Client, func(), error) {
	tok, err := p.ts.Token()
	if err != nil {
		return nil, nil, &mailbox.AuthError{Driver: driverName, Message: err.Error()}
	}

	addr := p.cfg.Host + ":" + strconv.Itoa(p.cfg.Port)
	var client *imapclient.Client
	if p.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	// imapclient has no context support; closing the connection unblocks
	// any pending command.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })

	bearer := sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: p.username,
		Token:    tok.AccessToken,
		Host:     p.cfg.Host,
		Port:     p.cfg.Port,
	})
	if err := client.Authenticate(bearer); err != nil {
		stop()
		_ = client.Close()
		return nil, nil, &mailbox.AuthError{
			Driver:  driverName,
			Message: fmt.Sprintf("authentication failed for %s: %v", p.username, err),
		}
	}

	release := func() {
		stop()
		_ = client.Logout().Wait()
	}
	return client, release, nil
}

func (p *Provider) selectInbox(ctx context.Context) (*imapclient.Client, func(), error) {
	client, release, err := p.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := client.Select(inbox, nil).Wait(); err != nil {
		release()
		return nil, nil, fmt.Errorf("selecting INBOX: %w", err)
	}
	return client, release, nil
}

// Profile reports the account address and the INBOX message count.
func (p *Provider) Profile(ctx context.Context) (*model.Profile, error) {
	client, release, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	status, err := client.Status(inbox, &imap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("getting INBOX status: %w", err)
	}

	prof := &model.Profile{Email: p.username}
	if status.NumMessages != nil {
		prof.MessagesTotal = int64(*status.NumMessages)
	}
	return prof, nil
}

// ListInbox fetches the newest max messages of INBOX, newest first.
func (p *Provider) ListInbox(ctx context.Context, max int) ([]model.Email, error) {
	client, release, err := p.selectInbox(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []model.Email{}, nil
	}
	if max > 0 && len(uids) > max {
		uids = uids[len(uids)-max:]
	}

	emails, err := fetch(client, imap.UIDSetNum(uids...))
	if err != nil {
		return nil, err
	}

	// UIDs grow with arrival, so the highest is the newest.
	byUID := make(map[string]model.Email, len(emails))
	for _, e := range emails {
		byUID[e.ID] = e
	}
	ordered := make([]model.Email, 0, len(emails))
	for i := len(uids) - 1; i >= 0; i-- {
		if e, ok := byUID[strconv.FormatUint(uint64(uids[i]), 10)]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

// GetEmail fetches one message by UID.
func (p *Provider) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	client, release, err := p.selectInbox(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	emails, err := fetch(client, imap.UIDSetNum(uid))
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("message UID %d: %w", uid, mailbox.ErrNotFound)
	}
	return &emails[0], nil
}

// MarkRead adds \Seen to the message.
func (p *Provider) MarkRead(ctx context.Context, id string) error {
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	client, release, err := p.selectInbox(ctx)
	if err != nil {
		return err
	}
	defer release()

	storeCmd := client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("marking UID %d as read: %w", uid, err)
	}
	return nil
}

func fetch(client *imapclient.Client, uids imap.UIDSet) ([]model.Email, error) {
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(uids, &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []model.Email
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		emails = append(emails, toEmail(buf.UID, buf.Envelope, buf.Flags, buf.FindBodySection(bodySection)))
	}

	if err := fetchCmd.Close(); err != nil {
		return emails, fmt.Errorf("fetching messages: %w", err)
	}
	return emails, nil
}

func parseUID(id string) (imap.UID, error) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("message %q: %w", id, mailbox.ErrNotFound)
	}
	return imap.UID(n), nil
}

// toEmail maps a fetched message onto the Gmail-style label model.
func toEmail(uid imap.UID, env *imap.Envelope, flags []imap.Flag, raw []byte) model.Email {
	e := model.Email{
		ID:      strconv.FormatUint(uint64(uid), 10),
		Subject: "(no subject)",
		Sender:  "Unknown",
	}

	if env != nil {
		e.ThreadID = env.MessageID
		if env.Subject != "" {
			e.Subject = env.Subject
		}
		if len(env.From) > 0 {
			from := env.From[0]
			switch {
			case from.Name != "" && from.Addr() != "":
				e.Sender = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			case from.Addr() != "":
				e.Sender = from.Addr()
			case from.Name != "":
				e.Sender = from.Name
			}
		}
		if !env.Date.IsZero() {
			e.Date = env.Date.Format(time.RFC1123Z)
		}
	}

	var attachments int
	if raw != nil {
		text, html, n := parseMIMEBody(raw)
		attachments = n
		e.Body = text
		if e.Body == "" {
			e.Body = html
		}
		e.Snippet = snippet(text)
	}

	e.Labels = labelsFromFlags(flags, attachments > 0)
	e.ApplyLabels()
	return e
}

func labelsFromFlags(flags []imap.Flag, hasAttachments bool) []string {
	labels := []string{model.LabelInbox}
	seen := false
	for _, f := range flags {
		switch f {
		case imap.FlagSeen:
			seen = true
		case imap.FlagFlagged:
			labels = append(labels, model.LabelImportant)
		}
	}
	if !seen {
		labels = append(labels, model.LabelUnread)
	}
	if hasAttachments {
		labels = append(labels, model.LabelAttachment)
	}
	return labels
}

func snippet(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	if r := []rune(s); len(r) > snippetLen {
		return string(r[:snippetLen])
	}
	return s
}

// parseMIMEBody extracts the text/plain and text/html bodies of a raw
// RFC 5322 message and counts its attachments.
func parseMIMEBody(raw []byte) (textBody, htmlBody string, attachments int) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", 0
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain") && textBody == "":
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}
		case *mail.AttachmentHeader:
			attachments++
		}
	}

	return textBody, htmlBody, attachments
}
