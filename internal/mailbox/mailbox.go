// Package mailbox defines the contract every mail provider driver
// implements for the backend.
package mailbox

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("message not found")

// AuthError indicates that the provider rejected the account credentials.
type AuthError struct {
	Driver  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Driver, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Provider is one signed-in mailbox.
type Provider interface {
	// Profile describes the mailbox.
	Profile(ctx context.Context) (*model.Profile, error)

	// ListInbox returns up to max inbox messages, newest first.
	ListInbox(ctx context.Context, max int) ([]model.Email, error)

	// GetEmail returns one message with its body.
	GetEmail(ctx context.Context, id string) (*model.Email, error)

	// MarkRead removes the UNREAD label.
	MarkRead(ctx context.Context, id string) error
}

// Factory opens a Provider for an account. The token source refreshes the
// provider access token when it expires.
type Factory func(ctx context.Context, ts oauth2.TokenSource, account string) (Provider, error)
