// Package insights renders the AI overview of recent inbox traffic.
package insights

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

// Sample size bounds accepted by the backend.
const (
	DefaultSample = 50
	MinSample     = 10
	MaxSample     = 200
	sampleStep    = 10
)

// CloseMsg signals the parent to close the insights panel.
type CloseMsg struct{}

// RequestMsg asks the parent to load insights over the latest Sample
// messages.
type RequestMsg struct {
	Sample int
}

// LoadedMsg carries the result of an insights request.
type LoadedMsg struct {
	Insights *model.Insights
	Err      error
}

// Model is the insights panel.
type Model struct {
	insights *model.Insights
	err      error
	loading  bool
	sample   int

	viewport viewport.Model
	spinner  spinner.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new insights panel.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width-4, max(height-6, 4))
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		sample:   DefaultSample,
		viewport: vp,
		spinner:  sp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the panel.
func (m Model) Init() tea.Cmd {
	return nil
}

// Open shows the panel, requesting insights when none are loaded yet.
func (m *Model) Open() tea.Cmd {
	if m.insights != nil || m.loading {
		return nil
	}
	return m.request()
}

// Reset drops loaded insights, e.g. after sign-out.
func (m *Model) Reset() {
	m.insights = nil
	m.err = nil
	m.loading = false
	m.refresh()
}

// Update handles messages for the insights panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.insights = msg.Insights
		m.err = msg.Err
		m.refresh()
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return CloseMsg{} }

		case key.Matches(msg, m.keys.Refresh):
			if m.loading {
				return m, nil
			}
			cmd := m.request()
			return m, cmd

		case key.Matches(msg, m.keys.SampleMore):
			m.sample = min(m.sample+sampleStep, MaxSample)
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.SampleLess):
			m.sample = max(m.sample-sampleStep, MinSample)
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) request() tea.Cmd {
	m.loading = true
	m.err = nil
	m.refresh()
	sample := m.sample
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return RequestMsg{Sample: sample} },
	)
}

// Sample returns the number of messages insights are computed over.
func (m Model) Sample() int {
	return m.sample
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

func (m Model) renderContent() string {
	switch {
	case m.loading:
		return fmt.Sprintf("%s Analyzing the latest %d messages...", m.spinner.View(), m.sample)
	case m.err != nil:
		return lipgloss.NewStyle().Foreground(theme.ColorRed).
			Render("Could not load insights: "+m.err.Error()) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).Render("Press r to retry.")
	case m.insights == nil:
		return lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true).
			Render("Press r to analyze your inbox.")
	}

	in := m.insights
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	textStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite).Width(max(m.width-8, 20))

	var sections []string
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sections = append(sections, headerStyle.Render(title))
		for _, it := range items {
			sections = append(sections, textStyle.Render("  • "+it))
		}
		sections = append(sections, "")
	}

	section("Main topics", in.MainTopics)
	section("Frequent senders", in.FrequentSenders)
	if in.CommunicationPatterns != "" {
		sections = append(sections,
			headerStyle.Render("Communication patterns"),
			textStyle.Render(in.CommunicationPatterns),
			"",
		)
	}
	section("Suggestions", in.OrganizationSuggestions)

	if len(sections) == 0 {
		return lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true).
			Render("No messages to analyze.")
	}
	return strings.Join(sections, "\n")
}

// View renders the insights panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	title := titleStyle.Render("Inbox Insights") + "  " +
		lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render(fmt.Sprintf("latest %d messages", m.sample))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-6, 80), 0)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		separator,
		m.viewport.View(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 4
	m.viewport.Height = max(height-6, 4)
	m.refresh()
}
