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

// SaveAnalysis caches the analysis of one message, replacing any older one.
func (s *SQLiteStore) SaveAnalysis(
	ctx context.Context,
	account, emailID string,
	a model.Analysis,
) error {
	actions := a.RecommendedActions
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("marshaling recommended actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyses (
			account, email_id, summary, sentiment, urgency, category,
			recommended_actions, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account, emailID, a.Summary, a.Sentiment, a.Urgency, a.Category,
		string(actionsJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analysis of %s: %w", emailID, err)
	}
	return nil
}

// GetAnalysis returns the cached analysis of one message.
func (s *SQLiteStore) GetAnalysis(
	ctx context.Context,
	account, emailID string,
) (*model.Analysis, error) {
	var row struct {
		Summary   string `db:"summary"`
		Sentiment string `db:"sentiment"`
		Urgency   string `db:"urgency"`
		Category  string `db:"category"`
		Actions   string `db:"recommended_actions"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT summary, sentiment, urgency, category, recommended_actions
		FROM analyses WHERE account = ? AND email_id = ?`,
		account, emailID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting analysis of %s: %w", emailID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis of %s: %w", emailID, err)
	}

	a := &model.Analysis{
		Summary:   row.Summary,
		Sentiment: row.Sentiment,
		Urgency:   row.Urgency,
		Category:  row.Category,
	}
	if err := json.Unmarshal([]byte(row.Actions), &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("unmarshaling recommended actions: %w", err)
	}
	return a, nil
}
