// Package inbox renders the message list.
package inbox

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/keys"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
)

// SelectedEmailMsg is sent when the user opens a message.
type SelectedEmailMsg struct {
	Email model.Email
}

// MarkReadMsg asks the parent to mark a message read.
type MarkReadMsg struct {
	ID string
}

// AnalyzeMsg asks the parent to open a message with its AI analysis.
type AnalyzeMsg struct {
	Email model.Email
}

// Model is the inbox list view component.
type Model struct {
	list      list.Model
	keys      *keys.KeyMap
	connected bool
	loaded    bool
	lastErr   error
	width     int
	height    int
}

// New creates a new inbox model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("message", "messages")
	l.DisableQuitKeybindings()

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			e, ok := m.SelectedEmail()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return SelectedEmailMsg{Email: e} }

		case key.Matches(msg, m.keys.MarkRead):
			e, ok := m.SelectedEmail()
			if !ok || e.IsRead {
				return m, nil
			}
			return m, func() tea.Msg { return MarkReadMsg{ID: e.ID} }

		case key.Matches(msg, m.keys.Analyze):
			e, ok := m.SelectedEmail()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return AnalyzeMsg{Email: e} }
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetEmails replaces the list, keeping the cursor on the same message
// when it is still present.
func (m *Model) SetEmails(emails []model.Email) tea.Cmd {
	selectedID := ""
	if e, ok := m.SelectedEmail(); ok {
		selectedID = e.ID
	}

	items := make([]list.Item, len(emails))
	cursor := 0
	for i, e := range emails {
		items[i] = EmailItem{Email: e}
		if e.ID == selectedID {
			cursor = i
		}
	}
	m.loaded = true
	m.lastErr = nil
	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	return cmd
}

// SetError records a failed refresh. The current list stays visible.
func (m *Model) SetError(err error) {
	m.lastErr = err
}

// SetConnected switches between the signed-in and signed-out states.
// Signing out clears the list.
func (m *Model) SetConnected(connected bool) {
	m.connected = connected
	if !connected {
		m.loaded = false
		m.lastErr = nil
		m.list.SetItems(nil)
	}
}

// MarkRead flags a message read in place.
func (m *Model) MarkRead(id string) {
	for i, it := range m.list.Items() {
		ei, ok := it.(EmailItem)
		if !ok || ei.Email.ID != id {
			continue
		}
		ei.Email.MarkRead()
		m.list.SetItem(i, ei)
		return
	}
}

// SelectedEmail returns the message under the cursor.
func (m Model) SelectedEmail() (model.Email, bool) {
	ei, ok := m.list.SelectedItem().(EmailItem)
	if !ok {
		return model.Email{}, false
	}
	return ei.Email, true
}

// Emails returns the listed messages.
func (m Model) Emails() []model.Email {
	items := m.list.Items()
	emails := make([]model.Email, 0, len(items))
	for _, it := range items {
		if ei, ok := it.(EmailItem); ok {
			emails = append(emails, ei.Email)
		}
	}
	return emails
}

// UnreadCount returns the number of unread messages listed.
func (m Model) UnreadCount() int {
	n := 0
	for _, e := range m.Emails() {
		if !e.IsRead {
			n++
		}
	}
	return n
}

// View renders the inbox view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when no messages are listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.connected:
		return style.Render("Not connected.\n\nPress l to connect your Gmail account.")
	case m.lastErr != nil:
		return style.Render(fmt.Sprintf("Could not load the inbox.\n%v\n\nPress r to retry.", m.lastErr))
	case !m.loaded:
		return style.Render("Loading inbox...")
	default:
		return style.Render("Inbox is empty.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
