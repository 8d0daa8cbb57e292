// Package command is the ":" command palette.
package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
)

// Command is a palette entry.
type Command struct {
	Name        string
	Description string
}

// CommandMsg is emitted when the user executes a command. An empty
// command closes the palette.
type CommandMsg string

// Model is the command palette view.
type Model struct {
	input    textinput.Model
	commands []Command
	width    int
	height   int
}

// New creates a palette offering commands as tab completions.
func New(commands []Command, width, height int) Model {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name
	}

	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:    ti,
		commands: commands,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Reset()
			return m, func() tea.Msg { return CommandMsg("") }
		case "enter":
			cmd := strings.ToLower(strings.TrimSpace(m.input.Value()))
			m.input.Reset()
			return m, func() tea.Msg { return CommandMsg(cmd) }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Matches returns the commands whose name starts with the typed text.
func (m Model) Matches() []Command {
	prefix := strings.ToLower(strings.TrimSpace(m.input.Value()))
	var out []Command
	for _, c := range m.commands {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	descStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	lines := []string{titleStyle.Render("Command Palette"), m.input.View(), ""}
	matches := m.Matches()
	if len(matches) == 0 {
		lines = append(lines, descStyle.Render("no matching command"))
	}
	for _, c := range matches {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			nameStyle.Render(fmt.Sprintf("%-10s", c.Name)),
			descStyle.Render(c.Description)))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
