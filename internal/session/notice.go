package session

import (
	"errors"

	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
)

// NoticeKind classifies a notice for the dashboard.
type NoticeKind int

const (
	NoticeSignedIn NoticeKind = iota + 1
	NoticeSignedOut
	NoticeExpired
	NoticeError
	NoticeInfo
)

// Notice is a transient, user-visible message.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// IsError reports whether the notice should be rendered as an error.
func (n Notice) IsError() bool {
	return n.Kind == NoticeError || n.Kind == NoticeExpired
}

// Notifier receives notices. Implementations must not block: notices are
// emitted from the goroutine that resolved the authorization attempt.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// ErrorNotice maps an authorization error to the text shown to the user.
func ErrorNotice(err error) Notice {
	var msg string
	switch {
	case errors.Is(err, auth.ErrPopupBlocked):
		msg = "Could not open the sign-in window. Check your browser setting and try again."
	case errors.Is(err, auth.ErrUserCancelled):
		msg = "Sign-in cancelled: the window was closed before consent finished."
	case errors.Is(err, auth.ErrAuthExchangeFailed):
		msg = "Error connecting to Gmail: the authorization code was rejected."
	case errors.Is(err, auth.ErrMalformedCallback):
		msg = "Sign-in did not return an authorization code."
	case errors.Is(err, auth.ErrAuthorizationTimeout):
		msg = "Sign-in timed out. Press l to try again."
	default:
		msg = "Error connecting to Gmail."
	}
	return Notice{Kind: NoticeError, Message: msg, Err: err}
}
