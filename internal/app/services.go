package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/session"
	appsync "github.com/memakingbeats/sentient-inbox-main/internal/sync"
)

// SessionController is the part of session.Controller the dashboard uses.
type SessionController interface {
	session.Reader
	SignIn(ctx context.Context) (*auth.Attempt, error)
	Logout() bool
	Expire(reason error) bool
	Close()
}

// Backend is the part of the REST client the dashboard calls directly.
// Inbox listing goes through the poller.
type Backend interface {
	MarkRead(ctx context.Context, id string) error
	Analysis(ctx context.Context, id string) (*model.Analysis, error)
	Insights(ctx context.Context, maxEmails int) (*model.Insights, error)
	Logout(ctx context.Context) error
}

// Services is everything wired from one configuration.
type Services struct {
	Session SessionController
	Backend Backend
	Poller  *appsync.Poller

	// Close releases the callback server and any consent window.
	Close func()
}

// Connector wires Services for cfg. Notices from the session must go to n.
type Connector func(cfg *model.AppConfig, n session.Notifier) (*Services, error)

// connectedMsg is sent after setup rewired the services.
type connectedMsg struct {
	svc *Services
	err error
}

// connect returns a command that wires services for cfg.
func (m *Model) connect(cfg *model.AppConfig) tea.Cmd {
	connector := m.connector
	notices := m.notices
	return func() tea.Msg {
		svc, err := connector(cfg, notices)
		if err != nil {
			log.LogErrorWithFields("app", "wiring services", map[string]any{"error": err.Error()})
		}
		return connectedMsg{svc: svc, err: err}
	}
}

// shutdownServices stops polling and releases the current services.
func (m *Model) shutdownServices() {
	if m.svc == nil {
		return
	}
	m.svc.Poller.Stop()
	m.svc.Session.Close()
	if m.svc.Close != nil {
		m.svc.Close()
	}
	m.svc = nil
}
