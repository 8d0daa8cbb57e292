package auth

import "context"

// Popup is the consent window owned by one attempt.
type Popup interface {
	// Closed reports whether the window is gone. Polled by the bridge.
	Closed() bool

	// Close closes the window early. Closing twice is not an error.
	Close() error
}

// PopupOptions are the fixed window parameters.
type PopupOptions struct {
	Name   string
	Width  int
	Height int
}

// Opener creates consent windows. An opener that already has a live window
// with the same name may return that window instead of a new one.
type Opener interface {
	Open(ctx context.Context, url string, opts PopupOptions) (Popup, error)
}

// Exchanger trades an authorization code for a bearer token.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}
