package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
)

// Layout holds the terminal dimensions and the height of the one-line
// header and status bar that frame every view.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout for a terminal of the given size.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left between the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the app title on the left and the session state on
// the right.
func (l Layout) RenderHeader(title, status string) string {
	return l.splitBar(theme.HeaderStyle, title, status)
}

// RenderStatusBar renders key hints on the left and the current notice, if
// any, on the right.
func (l Layout) RenderStatusBar(hints, notice string) string {
	return l.splitBar(theme.StatusBarStyle, hints, notice)
}

// splitBar fills a full-width line in style with left and right aligned
// segments. An empty right segment renders nothing.
func (l Layout) splitBar(style lipgloss.Style, left, right string) string {
	parts := []string{style.Render(left)}
	if right != "" {
		parts = append(parts, style.Align(lipgloss.Right).Render(right))
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	filler := style.Render(lipgloss.NewStyle().
		Width(max(l.Width-used-style.GetHorizontalFrameSize(), 0)).
		Background(style.GetBackground()).
		Render(""))

	// filler sits between left and right
	parts = append(parts[:1], append([]string{filler}, parts[1:]...)...)
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// RenderCentered places text in the middle of the content area.
func (l Layout) RenderCentered(text string) string {
	return lipgloss.NewStyle().
		Width(l.ContentWidth()).
		Height(l.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// RenderWithFrame stacks the header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
