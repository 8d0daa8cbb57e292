// Package keys holds the dashboard key bindings.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the dashboard.
type KeyMap struct {
	Down   key.Binding
	Up     key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding

	Command key.Binding
	Help    key.Binding
	Refresh key.Binding

	// Message actions
	MarkRead key.Binding
	Analyze  key.Binding
	Insights key.Binding

	// Insights sample size
	SampleMore key.Binding
	SampleLess key.Binding

	// Session
	SignIn  key.Binding
	SignOut key.Binding
}

// Section is a titled group of bindings for the help screen.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open message"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark read"),
		),
		Analyze: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "AI analysis"),
		),
		Insights: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "inbox insights"),
		),
		SampleMore: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "more messages"),
		),
		SampleLess: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "fewer messages"),
		),
		SignIn: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "connect Gmail"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "disconnect"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.MarkRead, k.Analyze, k.SignIn, k.Help}
}

// FullHelp returns all keybindings in the column layout of bubbles/help.
func (k *KeyMap) FullHelp() [][]key.Binding {
	sections := k.Sections()
	out := make([][]key.Binding, len(sections))
	for i, s := range sections {
		out[i] = s.Bindings
	}
	return out
}

// Sections groups the bindings by what they act on.
func (k *KeyMap) Sections() []Section {
	return []Section{
		{Title: "Navigation", Bindings: []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit}},
		{Title: "Messages", Bindings: []key.Binding{k.MarkRead, k.Analyze, k.Refresh}},
		{Title: "Insights", Bindings: []key.Binding{k.Insights, k.SampleMore, k.SampleLess}},
		{Title: "Account", Bindings: []key.Binding{k.SignIn, k.SignOut}},
		{Title: "General", Bindings: []key.Binding{k.Command, k.Help}},
	}
}
