// Package app is the root Bubble Tea model of the dashboard.
package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/memakingbeats/sentient-inbox-main/internal/apiclient"
	"github.com/memakingbeats/sentient-inbox-main/internal/keys"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/session"
	appsync "github.com/memakingbeats/sentient-inbox-main/internal/sync"
	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/command"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/detail"
	helpview "github.com/memakingbeats/sentient-inbox-main/internal/ui/help"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/inbox"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/insights"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewDetail
	ViewInsights
	ViewSetup
	ViewHelp
	ViewCommand
)

// paletteCommands are the commands the palette completes.
var paletteCommands = []command.Command{
	{Name: "refresh", Description: "reload the inbox"},
	{Name: "insights", Description: "open inbox insights"},
	{Name: "login", Description: "connect Gmail"},
	{Name: "logout", Description: "disconnect"},
	{Name: "setup", Description: "edit connection settings"},
	{Name: "help", Description: "show key bindings"},
	{Name: "quit", Description: "exit"},
}

// startSetupMsg opens the setup form.
type startSetupMsg struct{}

// Model is the root Bubble Tea model that manages view routing, layout
// and the session-bound services.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	cfg       *model.AppConfig
	connector Connector
	svc       *Services
	notices   *Notices
	connected bool

	inbox        inbox.Model
	detail       detail.Model
	insightsView insights.Model
	setupView    setup.Model
	helpView     helpview.Model
	commandView  command.Model

	notice    session.Notice
	noticeSeq int
	ready     bool
}

// New creates the root model. When cfg is not configured yet the
// dashboard opens the setup form first; the form saves to cfgPath.
func New(cfg *model.AppConfig, cfgPath string, connector Connector, check setup.Checker) Model {
	k := keys.DefaultKeyMap()
	m := Model{
		currentView:  ViewInbox,
		keys:         k,
		cfg:          cfg,
		connector:    connector,
		notices:      NewNotices(),
		inbox:        inbox.New(k, 80, 24),
		detail:       detail.New(k, 80, 24),
		insightsView: insights.New(k, 80, 24),
		setupView:    setup.New(cfg, cfgPath, check, 80, 24),
		helpView:     helpview.New(k, paletteCommands, 80, 24),
		commandView:  command.New(paletteCommands, 80, 24),
	}
	m.helpView.SetConfig(cfg)
	if !cfg.Configured() {
		m.currentView = ViewSetup
	}
	return m
}

// Init starts listening for notices and either wires the services or
// opens the setup form.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return tea.Batch(
			m.notices.Wait(),
			func() tea.Msg { return startSetupMsg{} },
		)
	}
	return tea.Batch(m.notices.Wait(), m.connect(m.cfg))
}

// Shutdown releases the services. Call it after the program exits.
func (m Model) Shutdown() {
	m.shutdownServices()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inbox.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.insightsView.SetSize(contentWidth, contentHeight)
		m.setupView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case startSetupMsg:
		m.currentView = ViewSetup
		return m, m.setupView.Init()

	case connectedMsg:
		if msg.err != nil {
			m.currentView = ViewSetup
			cmd := m.showNotice(session.Notice{
				Kind:    session.NoticeError,
				Message: "Configuration error: " + msg.err.Error(),
				Err:     msg.err,
			})
			return m, tea.Batch(cmd, m.setupView.Init())
		}
		m.svc = msg.svc
		m.currentView = ViewInbox
		return m, m.syncSession()

	case noticeMsg:
		n := session.Notice(msg)
		cmds := []tea.Cmd{m.notices.Wait(), m.showNotice(n)}
		switch n.Kind {
		case session.NoticeSignedIn, session.NoticeSignedOut, session.NoticeExpired:
			cmds = append(cmds, m.syncSession())
		}
		return m, tea.Batch(cmds...)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = session.Notice{}
		}
		return m, nil

	case appsync.InboxMsg:
		return m.handleInbox(msg)

	case authExpiredMsg:
		m.expire(msg.err)
		return m, nil

	case markedReadMsg:
		if msg.err != nil {
			if apiclient.IsAuthError(msg.err) {
				m.expire(msg.err)
				return m, nil
			}
			return m, m.showError("Could not mark the message read", msg.err)
		}
		m.inbox.MarkRead(msg.id)
		m.detail.MarkRead(msg.id)
		return m, nil

	case loggedOutMsg:
		return m, m.syncSession()

	case inbox.SelectedEmailMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetEmail(msg.Email)
		return m, nil

	case inbox.MarkReadMsg:
		if m.svc == nil {
			return m, nil
		}
		return m, m.markRead(msg.ID)

	case inbox.AnalyzeMsg:
		if m.svc == nil {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetEmail(msg.Email)
		return m, tea.Batch(m.detail.StartAnalysis(), m.loadAnalysis(msg.Email.ID))

	case detail.ActionMsg:
		if m.svc == nil {
			return m, nil
		}
		switch msg.Action {
		case detail.ActionAnalyze:
			return m, tea.Batch(m.detail.StartAnalysis(), m.loadAnalysis(msg.EmailID))
		case detail.ActionMarkRead:
			return m, m.markRead(msg.EmailID)
		}
		return m, nil

	case detail.AnalysisLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewInbox
		return m, nil

	case insights.RequestMsg:
		if m.svc == nil {
			return m, nil
		}
		return m, m.loadInsights(msg.Sample)

	case insights.LoadedMsg:
		var cmd tea.Cmd
		m.insightsView, cmd = m.insightsView.Update(msg)
		return m, cmd

	case insights.CloseMsg:
		m.currentView = ViewInbox
		return m, nil

	case setup.DoneMsg:
		m.shutdownServices()
		m.cfg = msg.Config
		m.helpView.SetConfig(msg.Config)
		m.connected = false
		m.inbox.SetConnected(false)
		m.insightsView.Reset()
		return m, m.connect(msg.Config)

	case setup.CancelMsg:
		if m.svc == nil {
			// Nothing to fall back to without a configuration.
			return m, tea.Quit
		}
		m.currentView = ViewInbox
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentView == ViewSetup || m.currentView == ViewCommand {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
			m.currentView = m.previousView
			return m, nil
		}

		if m.currentView == ViewInbox {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.SignIn):
				return m, m.startSignIn()
			case key.Matches(msg, m.keys.SignOut):
				return m, m.startSignOut()
			case key.Matches(msg, m.keys.Refresh):
				return m, m.refresh()
			case key.Matches(msg, m.keys.Insights):
				return m, m.openInsights()
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleInbox applies a poller result.
func (m Model) handleInbox(msg appsync.InboxMsg) (tea.Model, tea.Cmd) {
	if m.svc == nil {
		return m, nil
	}
	wait := m.svc.Poller.WaitForNextResult()

	if !m.connected {
		// Stale result from before sign-out.
		return m, wait
	}
	if msg.AuthError {
		m.expire(msg.Err)
		return m, wait
	}
	if msg.Err != nil {
		m.inbox.SetError(msg.Err)
		return m, wait
	}

	cmds := []tea.Cmd{wait, m.inbox.SetEmails(msg.Emails)}
	if msg.NewCount > 0 {
		cmds = append(cmds, m.showNotice(session.Notice{
			Kind:    session.NoticeInfo,
			Message: fmt.Sprintf("%d new message(s)", msg.NewCount),
		}))
	}
	return m, tea.Batch(cmds...)
}

// syncSession aligns the views and the poller with the session snapshot.
func (m *Model) syncSession() tea.Cmd {
	if m.svc == nil {
		return nil
	}
	authed := m.svc.Session.Snapshot().Authenticated
	if authed == m.connected {
		return nil
	}
	m.connected = authed
	m.inbox.SetConnected(authed)

	if authed {
		log.LogInfoWithFields("app", "session started, polling inbox", nil)
		return m.svc.Poller.Start()
	}

	m.svc.Poller.Stop()
	m.insightsView.Reset()
	if m.currentView == ViewDetail || m.currentView == ViewInsights {
		m.currentView = ViewInbox
	}
	return nil
}

// expire ends the session after the backend rejected its token. The
// controller's notice drives the rest.
func (m *Model) expire(err error) {
	if m.svc == nil {
		return
	}
	m.svc.Session.Expire(err)
}

func (m *Model) startSignIn() tea.Cmd {
	if m.svc == nil {
		return nil
	}
	if m.svc.Session.Snapshot().Authenticated {
		return m.showNotice(session.Notice{Kind: session.NoticeInfo, Message: "Already connected."})
	}
	return m.signIn()
}

func (m *Model) startSignOut() tea.Cmd {
	if m.svc == nil || !m.svc.Session.Snapshot().Authenticated {
		return nil
	}
	return m.signOut()
}

func (m *Model) refresh() tea.Cmd {
	if m.svc == nil || !m.connected {
		return nil
	}
	m.svc.Poller.Refresh()
	return nil
}

func (m *Model) openInsights() tea.Cmd {
	if m.svc == nil || !m.connected {
		return m.showNotice(session.Notice{Kind: session.NoticeInfo, Message: "Connect Gmail first: press l."})
	}
	m.previousView = m.currentView
	m.currentView = ViewInsights
	return m.insightsView.Open()
}

func (m *Model) showNotice(n session.Notice) tea.Cmd {
	m.noticeSeq++
	m.notice = n
	return expireNotice(m.noticeSeq)
}

func (m *Model) showError(msg string, err error) tea.Cmd {
	log.LogWarnWithFields("app", msg, map[string]any{"error": err.Error()})
	return m.showNotice(session.Notice{Kind: session.NoticeError, Message: msg + ".", Err: err})
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewInsights:
		m.insightsView, cmd = m.insightsView.Update(msg)
	case ViewSetup:
		m.setupView, cmd = m.setupView.Update(msg)
	case ViewHelp:
		// static
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerTitle := "Sentient Inbox"
	if n := m.inbox.UnreadCount(); m.connected && n > 0 {
		headerTitle = fmt.Sprintf("Sentient Inbox [%d unread]", n)
	}
	header := m.layout.RenderHeader(headerTitle, m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.renderNotice())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewInbox:
		if m.svc == nil {
			return m.layout.RenderCentered("Connecting...")
		}
		return m.inbox.View()
	case ViewDetail:
		return m.detail.View()
	case ViewInsights:
		return m.insightsView.View()
	case ViewSetup:
		return m.setupView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) renderNotice() string {
	if m.notice.Message == "" {
		return ""
	}
	return theme.NoticeStyle(m.notice.IsError()).Render(m.notice.Message)
}

// syncStatus returns a short string describing the session and sync state.
func (m Model) syncStatus() string {
	if m.svc == nil {
		return "not configured"
	}
	if !m.connected {
		return "disconnected"
	}

	st := m.svc.Poller.Status()
	switch st.State {
	case appsync.SyncRunning:
		return "syncing..."
	case appsync.SyncError:
		return "⚠ backend unreachable"
	}
	if st.LastSync.IsZero() {
		return "connected"
	}
	return "synced " + st.LastSync.Format("15:04")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "tab complete | enter execute | esc back"
	case ViewDetail:
		return "esc back | a analyze | m mark read | j/k scroll"
	case ViewInsights:
		return "r reload | +/- sample size | esc back"
	case ViewSetup:
		return "enter next | esc cancel | ctrl+c quit"
	default:
		if !m.connected {
			return "l connect | : command | ? help | q quit"
		}
		return "enter open | m read | a analyze | i insights | r refresh | L disconnect | q quit"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "":
		return nil
	case "refresh", "sync":
		return m.refresh()
	case "insights":
		return m.openInsights()
	case "login", "connect":
		return m.startSignIn()
	case "logout", "disconnect":
		return m.startSignOut()
	case "setup", "config", "configure":
		m.previousView = m.currentView
		m.currentView = ViewSetup
		return m.setupView.Init()
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		return tea.Quit
	default:
		return m.showNotice(session.Notice{Kind: session.NoticeError, Message: fmt.Sprintf("Unknown command %q.", cmd)})
	}
}
