package inbox

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
)

const senderWidth = 22

// EmailItem wraps a model.Email so it can be used in a bubbles/list.
type EmailItem struct {
	Email model.Email
}

// FilterValue returns the string used for fuzzy filtering.
func (i EmailItem) FilterValue() string { return i.Email.Subject }

// Title returns the subject for the list.
func (i EmailItem) Title() string { return i.Email.Subject }

// Description returns a short summary line for the list.
func (i EmailItem) Description() string {
	parts := []string{
		senderName(i.Email.Sender),
		relativeDate(i.Email.Date),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering inbox rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single inbox row: unread marker, important badge,
// attachment marker, sender, subject and age.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(EmailItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(ei.Email, index == m.Index(), m.Width()))
}

func renderRow(e model.Email, selected bool, width int) string {
	marker := " "
	if !e.IsRead {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("●")
	}

	important := " "
	if e.IsImportant {
		important = theme.ImportantBadgeStyle.Render("!")
	}

	attachment := " "
	if e.HasAttachments {
		attachment = lipgloss.NewStyle().Foreground(theme.ColorGray).Render("+")
	}

	sender := fmt.Sprintf("%-*s", senderWidth, truncate(senderName(e.Sender), senderWidth))
	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeDate(e.Date))

	subject := e.Subject
	if avail := width - senderWidth - lipgloss.Width(age) - 12; avail > 10 {
		subject = truncate(subject, avail)
	}
	if e.IsRead {
		sender = theme.DimmedStyle.Render(sender)
		subject = theme.DimmedStyle.Render(subject)
	} else {
		sender = theme.UnreadStyle.Render(sender)
		subject = theme.UnreadStyle.Render(subject)
	}

	line := fmt.Sprintf("%s%s%s %s %s  %s",
		marker, important, attachment, sender, subject, age,
	)

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// senderName returns the display name of a From header, or the address
// when there is no name.
func senderName(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// relativeDate parses a Date header and renders its age. Unparseable
// values are shown as-is.
func relativeDate(raw string) string {
	t, err := mail.ParseDate(raw)
	if err != nil {
		return raw
	}
	return relativeTime(t)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}
