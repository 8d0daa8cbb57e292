package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

type emailRow struct {
	Account        string    `db:"account"`
	ID             string    `db:"id"`
	ThreadID       string    `db:"thread_id"`
	Subject        string    `db:"subject"`
	Sender         string    `db:"sender"`
	Date           string    `db:"date"`
	Body           string    `db:"body"`
	Snippet        string    `db:"snippet"`
	Labels         string    `db:"labels"`
	IsRead         int       `db:"is_read"`
	IsImportant    int       `db:"is_important"`
	HasAttachments int       `db:"has_attachments"`
	Position       int       `db:"position"`
	FetchedAt      time.Time `db:"fetched_at"`
}

func (r emailRow) toModel() (model.Email, error) {
	e := model.Email{
		ID:             r.ID,
		ThreadID:       r.ThreadID,
		Subject:        r.Subject,
		Sender:         r.Sender,
		Date:           r.Date,
		Body:           r.Body,
		Snippet:        r.Snippet,
		IsRead:         r.IsRead != 0,
		IsImportant:    r.IsImportant != 0,
		HasAttachments: r.HasAttachments != 0,
	}
	if r.Labels != "" {
		if err := json.Unmarshal([]byte(r.Labels), &e.Labels); err != nil {
			return model.Email{}, fmt.Errorf("unmarshaling labels of %s: %w", r.ID, err)
		}
	}
	return e, nil
}

// ReplaceEmails swaps the cached inbox of account for emails, keeping
// their order.
func (s *SQLiteStore) ReplaceEmails(
	ctx context.Context,
	account string,
	emails []model.Email,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM emails WHERE account = ?", account); err != nil {
		return fmt.Errorf("clearing emails of %s: %w", account, err)
	}

	const query = `
		INSERT OR REPLACE INTO emails (
			account, id, thread_id, subject, sender, date,
			body, snippet, labels,
			is_read, is_important, has_attachments,
			position, fetched_at
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, e := range emails {
		labels := e.Labels
		if labels == nil {
			labels = []string{}
		}
		labelsJSON, err := json.Marshal(labels)
		if err != nil {
			return fmt.Errorf("marshaling labels for %s: %w", e.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			account, e.ID, e.ThreadID, e.Subject, e.Sender, e.Date,
			e.Body, e.Snippet, string(labelsJSON),
			boolToInt(e.IsRead), boolToInt(e.IsImportant), boolToInt(e.HasAttachments),
			i, now,
		)
		if err != nil {
			return fmt.Errorf("inserting email %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// GetEmails returns the cached inbox of account in provider order.
func (s *SQLiteStore) GetEmails(
	ctx context.Context,
	account string,
	limit int,
) ([]model.Email, error) {
	query := "SELECT * FROM emails WHERE account = ? ORDER BY position ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, query, account); err != nil {
		return nil, fmt.Errorf("querying emails: %w", err)
	}

	emails := make([]model.Email, 0, len(rows))
	for _, r := range rows {
		e, err := r.toModel()
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, nil
}

// GetEmail retrieves one cached message.
func (s *SQLiteStore) GetEmail(ctx context.Context, account, id string) (*model.Email, error) {
	var row emailRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM emails WHERE account = ? AND id = ?", account, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting email %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting email %s: %w", id, err)
	}

	e, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkEmailRead flips the cached read flag and drops UNREAD from labels.
// A message that is not cached is ignored.
func (s *SQLiteStore) MarkEmailRead(ctx context.Context, account, id string) error {
	e, err := s.GetEmail(ctx, account, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	e.MarkRead()

	labelsJSON, err := json.Marshal(e.Labels)
	if err != nil {
		return fmt.Errorf("marshaling labels for %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE emails SET is_read = 1, labels = ? WHERE account = ? AND id = ?",
		string(labelsJSON), account, id,
	)
	if err != nil {
		return fmt.Errorf("marking email %s as read: %w", id, err)
	}
	return nil
}
