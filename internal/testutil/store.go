// Package testutil holds fixtures shared by the backend tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedSession stores a signed-in mailbox session for email whose provider
// token is valid for another hour.
func SeedSession(t *testing.T, s store.Store, email string) model.AccountSession {
	t.Helper()

	sess, err := s.CreateSession(context.Background(), model.AccountSession{
		Email:       email,
		AccessToken: "ya29.good",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seeding session: %v", err)
	}
	return sess
}
