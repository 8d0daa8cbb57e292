package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/keys"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// Action names carried by ActionMsg.
const (
	ActionAnalyze  = "analyze"
	ActionMarkRead = "mark_read"
)

// ActionMsg signals the parent to execute an action on the open message.
type ActionMsg struct {
	Action  string
	EmailID string
}

// AnalysisLoadedMsg carries the result of an analysis request.
type AnalysisLoadedMsg struct {
	EmailID  string
	Analysis *model.Analysis
	Err      error
}

// Model is the message detail view component.
type Model struct {
	email    *model.Email
	viewport viewport.Model
	spinner  spinner.Model
	keys     *keys.KeyMap
	width    int
	height   int

	analysis        *model.Analysis
	analysisErr     error
	analysisLoading bool
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		viewport: vp,
		spinner:  sp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case AnalysisLoadedMsg:
		if m.email == nil || msg.EmailID != m.email.ID {
			return m, nil
		}
		m.analysisLoading = false
		m.analysis = msg.Analysis
		m.analysisErr = msg.Err
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.analysisLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Analyze):
			if m.email != nil && !m.analysisLoading && m.analysis == nil {
				id := m.email.ID
				return m, func() tea.Msg {
					return ActionMsg{Action: ActionAnalyze, EmailID: id}
				}
			}
			return m, nil

		case key.Matches(msg, m.keys.MarkRead):
			if m.email != nil && !m.email.IsRead {
				id := m.email.ID
				return m, func() tea.Msg {
					return ActionMsg{Action: ActionMarkRead, EmailID: id}
				}
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.email == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No message selected")
	}

	return m.viewport.View()
}

// SetEmail shows a message and forgets any previous analysis.
func (m *Model) SetEmail(e model.Email) {
	m.email = &e
	m.analysis = nil
	m.analysisErr = nil
	m.analysisLoading = false
	m.refresh()
	m.viewport.GotoTop()
}

// StartAnalysis shows the loading state of the analysis panel.
func (m *Model) StartAnalysis() tea.Cmd {
	m.analysisLoading = true
	m.analysisErr = nil
	m.refresh()
	return m.spinner.Tick
}

// MarkRead flags the open message read.
func (m *Model) MarkRead(id string) {
	if m.email == nil || m.email.ID != id {
		return
	}
	m.email.MarkRead()
	m.refresh()
}

// EmailID returns the ID of the open message, or "".
func (m Model) EmailID() string {
	if m.email == nil {
		return ""
	}
	return m.email.ID
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.email == nil {
		return ""
	}

	e := m.email
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	subject := e.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	sections = append(sections, titleStyle.Render(subject))

	var badges []string
	if !e.IsRead {
		badges = append(badges, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render("UNREAD"))
	}
	if e.IsImportant {
		badges = append(badges, theme.ImportantBadgeStyle.Render("IMPORTANT"))
	}
	if e.HasAttachments {
		badges = append(badges, lipgloss.NewStyle().Foreground(theme.ColorGray).Render("ATTACHMENTS"))
	}
	if len(badges) > 0 {
		sections = append(sections, strings.Join(badges, "  "))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf("%s  %s", metaStyle.Render("From:"), valStyle.Render(e.Sender)))
	if e.Date != "" {
		sections = append(sections, fmt.Sprintf("%s  %s", metaStyle.Render("Date:"), valStyle.Render(e.Date)))
	}

	separator := m.separator()
	sections = append(sections, "", separator, "")

	body := e.Body
	if body == "" {
		body = e.Snippet
	}
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No text content")
	}
	sections = append(sections, lipgloss.NewStyle().Width(m.contentWidth()).Render(body))

	if panel := m.renderAnalysis(); panel != "" {
		sections = append(sections, "", separator, "", panel)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderAnalysis() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	switch {
	case m.analysisLoading:
		return fmt.Sprintf("%s Analyzing message...", m.spinner.View())
	case m.analysisErr != nil:
		return headerStyle.Render("AI Analysis") + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorRed).
				Render("Analysis failed: "+m.analysisErr.Error())
	case m.analysis == nil:
		return ""
	}

	a := m.analysis
	lines := []string{
		headerStyle.Render("AI Analysis"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			theme.UrgencyStyle(a.Urgency).Render("urgency: "+a.Urgency),
			theme.SentimentStyle(a.Sentiment).Render(a.Sentiment),
			theme.CategoryStyle(a.Category).Render(a.Category),
		),
		"",
		lipgloss.NewStyle().Width(m.contentWidth()).Render(a.Summary),
	}

	if len(a.RecommendedActions) > 0 {
		lines = append(lines, "", headerStyle.Render("Recommended actions"))
		for _, action := range a.RecommendedActions {
			lines = append(lines, "  • "+action)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) separator() string {
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	return sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
}

func (m Model) contentWidth() int {
	return max(min(m.width-2, 100), 20)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.refresh()
}
