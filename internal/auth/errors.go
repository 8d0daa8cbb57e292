package auth

import "errors"

// Failures an authorization attempt can end with. None of them is fatal:
// the dashboard turns each into a transient notice and the user may retry.
var (
	// ErrPopupBlocked means the consent window could not be opened at all.
	ErrPopupBlocked = errors.New("authorization window could not be opened")

	// ErrUserCancelled means the consent window was closed before a
	// callback message arrived.
	ErrUserCancelled = errors.New("authorization window closed before consent completed")

	// ErrAuthExchangeFailed means the backend rejected the authorization
	// code or could not be reached.
	ErrAuthExchangeFailed = errors.New("authorization code exchange failed")

	// ErrMalformedCallback means the provider redirected back without an
	// authorization code.
	ErrMalformedCallback = errors.New("authorization callback carried no code")

	// ErrAuthorizationTimeout means the window stayed open past the attempt
	// deadline without delivering a result.
	ErrAuthorizationTimeout = errors.New("authorization timed out")

	// ErrSuperseded marks an attempt retired because a newer one started.
	ErrSuperseded = errors.New("authorization superseded by a newer attempt")

	// ErrWildcardOrigin is returned when a message is posted without a
	// concrete target origin.
	ErrWildcardOrigin = errors.New("message target origin must be explicit")
)
