package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

type sessionRow struct {
	ID           string       `db:"id"`
	Email        string       `db:"email"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	TokenType    string       `db:"token_type"`
	Expiry       sql.NullTime `db:"expiry"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// CreateSession stores a new session. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateSession(
	ctx context.Context,
	sess model.AccountSession,
) (model.AccountSession, error) {
	if sess.AccessToken == "" {
		return model.AccountSession{}, fmt.Errorf("session access token must not be empty")
	}
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, email, access_token, refresh_token, token_type,
			expiry, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Email, sess.AccessToken, sess.RefreshToken, sess.TokenType,
		nullTime(sess.Expiry), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return model.AccountSession{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.AccountSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM sessions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}

	sess := &model.AccountSession{
		ID:           row.ID,
		Email:        row.Email,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Expiry.Valid {
		sess.Expiry = row.Expiry.Time
	}
	return sess, nil
}

// UpdateSessionToken stores refreshed provider credentials.
func (s *SQLiteStore) UpdateSessionToken(ctx context.Context, sess model.AccountSession) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			access_token = ?, refresh_token = ?, token_type = ?,
			expiry = ?, updated_at = ?
		WHERE id = ?`,
		sess.AccessToken, sess.RefreshToken, sess.TokenType,
		nullTime(sess.Expiry), time.Now().UTC(), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", sess.ID, err)
	}
	return requireRow(result, "session", sess.ID)
}

// SetSessionEmail records the mailbox address once it is known.
func (s *SQLiteStore) SetSessionEmail(ctx context.Context, id, email string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET email = ?, updated_at = ? WHERE id = ?",
		email, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting email for session %s: %w", id, err)
	}
	return requireRow(result, "session", id)
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// PurgeSessions deletes sessions created before cutoff. Their bearer tokens
// have expired, so nothing can use them any more.
func (s *SQLiteStore) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged sessions: %w", err)
	}
	return n, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
