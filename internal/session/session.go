// Package session owns the dashboard's authenticated state.
package session

import (
	"context"
	"sync"

	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
)

// Session is a snapshot of the sign-in state. Token is non-empty exactly
// when Authenticated is true.
type Session struct {
	Authenticated bool
	Token         string
}

// Reader is the read-only view handed to the inbox and its helpers.
type Reader interface {
	Snapshot() Session
}

// Authorizer starts and abandons sign-in attempts.
type Authorizer interface {
	Begin(ctx context.Context) (*auth.Attempt, error)
	Cancel()
}

// Controller consumes authorization results and exposes the session. It is
// the bridge's ResultSink.
type Controller struct {
	mu       sync.RWMutex
	session  Session
	notifier Notifier
	auth     Authorizer
}

// NewController returns an unauthenticated controller. notifier may be nil.
func NewController(notifier Notifier) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	return &Controller{notifier: notifier}
}

// SetAuthorizer wires the bridge. It is separate from NewController because
// the bridge needs the controller as its sink.
func (c *Controller) SetAuthorizer(a Authorizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = a
}

// Snapshot returns the current session.
func (c *Controller) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Token returns the bearer token, or "" when signed out.
func (c *Controller) Token() string {
	return c.Snapshot().Token
}

// SignIn starts a new authorization attempt. A blocked popup is reported as
// a notice and returned; the session is left untouched.
func (c *Controller) SignIn(ctx context.Context) (*auth.Attempt, error) {
	c.mu.RLock()
	a := c.auth
	c.mu.RUnlock()
	if a == nil {
		return nil, auth.ErrPopupBlocked
	}

	attempt, err := a.Begin(ctx)
	if err != nil {
		c.Report(err)
		return nil, err
	}
	return attempt, nil
}

// OnAuthorizationResult applies the terminal result of an attempt.
func (c *Controller) OnAuthorizationResult(r auth.Result) {
	if !r.OK() || r.Token == "" {
		err := r.Err
		if err == nil {
			err = auth.ErrAuthExchangeFailed
		}
		c.Report(err)
		return
	}

	c.mu.Lock()
	c.session = Session{Authenticated: true, Token: r.Token}
	c.mu.Unlock()

	log.LogInfoWithFields("session", "signed in", nil)
	c.notifier.Notify(Notice{Kind: NoticeSignedIn, Message: "Connected to Gmail."})
}

// Report surfaces a sign-in error without touching the session.
func (c *Controller) Report(err error) {
	if err == nil {
		return
	}
	log.LogWarnWithFields("session", "sign-in error", map[string]any{"error": err.Error()})
	c.notifier.Notify(ErrorNotice(err))
}

// Logout clears the session. It reports whether anything changed; a second
// call is a no-op and emits no notice.
func (c *Controller) Logout() bool {
	if !c.clear() {
		return false
	}
	log.LogInfoWithFields("session", "signed out", nil)
	c.notifier.Notify(Notice{Kind: NoticeSignedOut, Message: "Disconnected from Gmail."})
	return true
}

// Expire clears the session after the backend rejected the token.
func (c *Controller) Expire(reason error) bool {
	if !c.clear() {
		return false
	}
	fields := map[string]any{}
	if reason != nil {
		fields["error"] = reason.Error()
	}
	log.LogWarnWithFields("session", "session expired", fields)
	c.notifier.Notify(Notice{
		Kind:    NoticeExpired,
		Message: "Session expired. Press l to sign in again.",
		Err:     reason,
	})
	return true
}

// Close abandons any pending attempt.
func (c *Controller) Close() {
	c.mu.RLock()
	a := c.auth
	c.mu.RUnlock()
	if a != nil {
		a.Cancel()
	}
}

func (c *Controller) clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Authenticated {
		return false
	}
	c.session = Session{}
	return true
}
