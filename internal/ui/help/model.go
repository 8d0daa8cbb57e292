// Package help renders the help screen.
package help

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/keys"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
	"github.com/memakingbeats/sentient-inbox-main/internal/ui/command"
)

// Model is the help overlay: key bindings by section, palette commands
// and the connection settings in use.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	commands []command.Command
	cfg      *model.AppConfig
	width    int
	height   int
}

// New creates a new help view model.
func New(k *keys.KeyMap, commands []command.Command, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:     k,
		help:     h,
		commands: commands,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetConfig sets the configuration shown in the Connection section.
func (m *Model) SetConfig(cfg *model.AppConfig) {
	m.cfg = cfg
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	keyStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	descStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	var columns []string
	for _, s := range m.keys.Sections() {
		lines := []string{titleStyle.Render(s.Title)}
		for _, b := range s.Bindings {
			lines = append(lines, bindingLine(b, keyStyle, descStyle))
		}
		columns = append(columns, lipgloss.NewStyle().MarginRight(4).Render(
			lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}

	sections := []string{
		titleStyle.MarginBottom(1).Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
		"",
		titleStyle.Render("Commands"),
	}
	for _, c := range m.commands {
		sections = append(sections, fmt.Sprintf("  %s  %s",
			keyStyle.Render(fmt.Sprintf(":%-10s", c.Name)),
			descStyle.Render(c.Description)))
	}

	if m.cfg != nil {
		sections = append(sections, "", titleStyle.Render("Connection"),
			descStyle.Render("  backend   ")+m.cfg.Backend.BaseURL,
			descStyle.Render("  redirect  ")+m.cfg.Auth.RedirectURI,
			descStyle.Render("  mode      ")+m.cfg.Auth.Mode,
		)
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func bindingLine(b key.Binding, keyStyle, descStyle lipgloss.Style) string {
	h := b.Help()
	return fmt.Sprintf("%s %s", keyStyle.Render(fmt.Sprintf("%-6s", h.Key)), descStyle.Render(h.Desc))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
}
