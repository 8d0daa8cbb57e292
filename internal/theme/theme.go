// Package theme holds the dashboard's colors and lipgloss styles.
package theme

import "github.com/charmbracelet/lipgloss"

// Colors are adaptive: Dark applies on dark terminals, Light otherwise.
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#8AB4F8", Light: "#1A73E8"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#81C995", Light: "#188038"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FDD663", Light: "#B06000"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#F28B82", Light: "#D93025"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FCAD70", Light: "#E37400"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#D7AEFB", Light: "#9334E6"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#9AA0A6", Light: "#5F6368"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#E8EAED", Light: "#202124"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#3C4043", Light: "#DADCE0"}
)

// HeaderStyle renders the title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle renders the key hints and notices at the bottom.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle frames the message, insights and help panels.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorSubtle)

// SelectedItemStyle marks the cursor row with a left rule.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

var (
	ListItemStyle = lipgloss.NewStyle().PaddingLeft(2)
	DimmedStyle   = lipgloss.NewStyle().Foreground(ColorGray)
	UnreadStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)

	// ImportantBadgeStyle marks messages Gmail flagged as important.
	ImportantBadgeStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorOrange)
)

var (
	urgencyColors = map[string]lipgloss.AdaptiveColor{
		"high":   ColorRed,
		"medium": ColorYellow,
		"low":    ColorBlue,
	}
	sentimentColors = map[string]lipgloss.AdaptiveColor{
		"positive": ColorGreen,
		"negative": ColorRed,
	}
	categoryColors = map[string]lipgloss.AdaptiveColor{
		"work":       ColorBlue,
		"personal":   ColorMagenta,
		"finance":    ColorYellow,
		"newsletter": ColorGray,
		"spam":       ColorGray,
	}
)

// badge looks value up in colors, falling back to fallback.
func badge(colors map[string]lipgloss.AdaptiveColor, value string, fallback lipgloss.AdaptiveColor) lipgloss.Style {
	c, ok := colors[value]
	if !ok {
		c = fallback
	}
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(c)
}

// NoticeStyle returns the style for a transient status bar notice.
func NoticeStyle(isError bool) lipgloss.Style {
	if isError {
		return badge(nil, "", ColorRed)
	}
	return badge(nil, "", ColorGreen)
}

// UrgencyStyle colors an analysis urgency level.
func UrgencyStyle(urgency string) lipgloss.Style {
	return badge(urgencyColors, urgency, ColorGray)
}

// SentimentStyle colors an analysis sentiment.
func SentimentStyle(sentiment string) lipgloss.Style {
	return badge(sentimentColors, sentiment, ColorGray)
}

// CategoryStyle colors an analysis category. Unknown categories are green.
func CategoryStyle(category string) lipgloss.Style {
	return badge(categoryColors, category, ColorGreen)
}
