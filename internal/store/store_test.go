package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/store"
	"github.com/memakingbeats/sentient-inbox-main/internal/testutil"
)

func TestSessionLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx, model.AccountSession{
		AccessToken:  "ya29.a",
		RefreshToken: "1//r",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a", got.AccessToken)
	assert.Equal(t, "1//r", got.RefreshToken)
	assert.WithinDuration(t, created.Expiry, got.Expiry, time.Second)

	require.NoError(t, s.SetSessionEmail(ctx, created.ID, "me@example.com"))
	got.AccessToken = "ya29.b"
	require.NoError(t, s.UpdateSessionToken(ctx, *got))

	got, err = s.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)
	assert.Equal(t, "ya29.b", got.AccessToken)

	require.NoError(t, s.DeleteSession(ctx, created.ID))
	_, err = s.GetSession(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, s.DeleteSession(ctx, created.ID))
}

func TestSessionWithoutExpiry(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx, model.AccountSession{AccessToken: "tok"})
	require.NoError(t, err)

	got, err := s.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Expiry.IsZero())
}

func TestCreateSessionRequiresToken(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.CreateSession(context.Background(), model.AccountSession{})
	assert.Error(t, err)
}

func TestUpdateMissingSession(t *testing.T) {
	s := testutil.NewTestStore(t)
	err := s.SetSessionEmail(context.Background(), "nope", "x@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmailCache(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	inbox := []model.Email{
		{ID: "m2", Subject: "Newest", Labels: []string{"INBOX", "UNREAD"}},
		{ID: "m1", Subject: "Older", Labels: []string{"INBOX"}, IsRead: true},
	}
	for i := range inbox {
		inbox[i].ApplyLabels()
	}
	require.NoError(t, s.ReplaceEmails(ctx, "me@example.com", inbox))
	require.NoError(t, s.ReplaceEmails(ctx, "other@example.com", []model.Email{{ID: "x"}}))

	got, err := s.GetEmails(ctx, "me@example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.False(t, got[0].IsRead)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, got[0].Labels)

	limited, err := s.GetEmails(ctx, "me@example.com", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.MarkEmailRead(ctx, "me@example.com", "m2"))
	e, err := s.GetEmail(ctx, "me@example.com", "m2")
	require.NoError(t, err)
	assert.True(t, e.IsRead)
	assert.Equal(t, []string{"INBOX"}, e.Labels)

	require.NoError(t, s.MarkEmailRead(ctx, "me@example.com", "missing"))

	// Replacing drops messages that left the inbox.
	require.NoError(t, s.ReplaceEmails(ctx, "me@example.com", inbox[1:]))
	_, err = s.GetEmail(ctx, "me@example.com", "m2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnalysisCache(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetAnalysis(ctx, "me", "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	want := model.Analysis{
		Summary:            "Invoice due Friday",
		Sentiment:          "neutral",
		Urgency:            "high",
		Category:           "work",
		RecommendedActions: []string{"pay invoice"},
	}
	require.NoError(t, s.SaveAnalysis(ctx, "me", "m1", want))

	got, err := s.GetAnalysis(ctx, "me", "m1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	require.NoError(t, s.SaveAnalysis(ctx, "me", "m1", model.Analysis{Summary: "again"}))
	got, err = s.GetAnalysis(ctx, "me", "m1")
	require.NoError(t, err)
	assert.Equal(t, "again", got.Summary)
	assert.Empty(t, got.RecommendedActions)
}

func TestPurgeSessions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	old := testutil.SeedSession(t, s, "old@example.com")
	n, err := s.PurgeSessions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "fresh sessions survive")

	n, err = s.PurgeSessions(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetSession(ctx, old.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	sess := testutil.SeedSession(t, s, "me@example.com")
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)
}
