package store

import (
	"context"
	"errors"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the backend's persistence: mailbox sessions, the cached
// inbox of each account and cached AI analyses.
type Store interface {
	// === Sessions ===

	CreateSession(ctx context.Context, sess model.AccountSession) (model.AccountSession, error)
	GetSession(ctx context.Context, id string) (*model.AccountSession, error)
	UpdateSessionToken(ctx context.Context, sess model.AccountSession) error
	SetSessionEmail(ctx context.Context, id, email string) error
	DeleteSession(ctx context.Context, id string) error
	PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error)

	// === Emails ===

	ReplaceEmails(ctx context.Context, account string, emails []model.Email) error
	GetEmails(ctx context.Context, account string, limit int) ([]model.Email, error)
	GetEmail(ctx context.Context, account, id string) (*model.Email, error)
	MarkEmailRead(ctx context.Context, account, id string) error

	// === Analyses ===

	SaveAnalysis(ctx context.Context, account, emailID string, a model.Analysis) error
	GetAnalysis(ctx context.Context, account, emailID string) (*model.Analysis, error)
}
