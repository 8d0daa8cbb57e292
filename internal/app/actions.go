package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memakingbeats/sentient-inbox-main/internal/apiclient"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/detail"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/insights"
)

// requestTimeout bounds dashboard-initiated backend calls. Analysis can
// take a while because the backend waits on the model.
const requestTimeout = 90 * time.Second

// markedReadMsg is sent after a mark-read request completes.
type markedReadMsg struct {
	id  string
	err error
}

// loggedOutMsg is sent after the backend session was deleted.
type loggedOutMsg struct{}

// authExpiredMsg is sent when a backend call was rejected with 401.
type authExpiredMsg struct {
	err error
}

func (m Model) markRead(id string) tea.Cmd {
	b := m.svc.Backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return markedReadMsg{id: id, err: b.MarkRead(ctx, id)}
	}
}

func (m Model) loadAnalysis(id string) tea.Cmd {
	b := m.svc.Backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		a, err := b.Analysis(ctx, id)
		if apiclient.IsAuthError(err) {
			return authExpiredMsg{err: err}
		}
		return detail.AnalysisLoadedMsg{EmailID: id, Analysis: a, Err: err}
	}
}

func (m Model) loadInsights(sample int) tea.Cmd {
	b := m.svc.Backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		in, err := b.Insights(ctx, sample)
		if apiclient.IsAuthError(err) {
			return authExpiredMsg{err: err}
		}
		return insights.LoadedMsg{Insights: in, Err: err}
	}
}

// signIn starts an authorization attempt. The outcome arrives as a notice.
func (m Model) signIn() tea.Cmd {
	s := m.svc.Session
	return func() tea.Msg {
		// Errors are reported through the notifier.
		_, _ = s.SignIn(context.Background())
		return nil
	}
}

// signOut deletes the backend session, best effort, then clears the local one.
func (m Model) signOut() tea.Cmd {
	b := m.svc.Backend
	s := m.svc.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.Logout(ctx); err != nil {
			log.LogWarnWithFields("app", "backend logout failed", map[string]any{"error": err.Error()})
		}
		s.Logout()
		return loggedOutMsg{}
	}
}
