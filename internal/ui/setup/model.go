// Package setup is the first-run configuration form.
package setup

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
	"github.com/memakingbeats/sentient-inbox-main/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm     Mode = iota // Editing the form
	ModeChecking             // Pinging the backend
	ModeResult               // Backend unreachable, asking what to do
)

const checkTimeout = 10 * time.Second

// DoneMsg carries the saved configuration.
type DoneMsg struct {
	Config *model.AppConfig
}

// CancelMsg signals the user left setup without saving.
type CancelMsg struct{}

// checkResultMsg carries the result of the backend reachability check.
type checkResultMsg struct {
	err error
}

// savedMsg is sent after the config file is written.
type savedMsg struct {
	cfg *model.AppConfig
	err error
}

// formFields holds the values huh binds to.
type formFields struct {
	ClientID    string
	BackendURL  string
	RedirectURI string
	Mode        string
}

// Checker pings a backend base URL.
type Checker func(ctx context.Context, baseURL string) error

// Model is the Bubble Tea model for the setup form.
type Model struct {
	mode  Mode
	form  *huh.Form
	path  string
	base  model.AppConfig
	check Checker

	// fields is shared by every copy of the model, so the form's bindings
	// stay valid as Bubble Tea passes the model around by value.
	fields *formFields

	checkErr  error
	statusMsg string
	spinner   spinner.Model

	width, height int
}

// New creates a setup view that edits cfg and saves it to path. check may
// be nil to skip the reachability check.
func New(cfg *model.AppConfig, path string, check Checker, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode:    ModeForm,
		path:    path,
		base:    *cfg,
		check:   check,
		fields:  &formFields{},
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.resetFormFields()
	return m
}

// Init builds the form and starts it.
func (m *Model) Init() tea.Cmd {
	m.mode = ModeForm
	m.statusMsg = ""
	m.resetFormFields()
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case checkResultMsg:
		if m.mode != ModeChecking {
			return m, nil
		}
		if msg.err != nil {
			m.checkErr = msg.err
			m.mode = ModeResult
			return m, nil
		}
		return m, m.save()

	case savedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving config: %v", msg.err)
			m.mode = ModeResult
			m.checkErr = msg.err
			return m, nil
		}
		m.base = *msg.cfg
		return m, func() tea.Msg { return DoneMsg{Config: msg.cfg} }

	case spinner.TickMsg:
		if m.mode == ModeChecking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeChecking:
			// Only allow escape during the check
			if msg.String() == "esc" {
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		case ModeResult:
			return m.handleResultKeys(msg)
		case ModeForm:
			if msg.String() == "esc" {
				return m, func() tea.Msg { return CancelMsg{} }
			}
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		cmd := m.startCheck()
		return m, cmd
	case "s":
		return m, m.save()
	case "enter", "esc":
		m.mode = ModeForm
		m.checkErr = nil
		m.form = m.buildForm()
		return m, m.form.Init()
	}
	return m, nil
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Connect Sentient Inbox").
				Description("Sign-in happens in a browser window. The client secret stays on the backend."),
			huh.NewInput().
				Title("Google OAuth client ID").
				Description("The public client ID from the Google Cloud console").
				Placeholder("1234-abc.apps.googleusercontent.com").
				Value(&m.fields.ClientID).
				Validate(validateRequired("Client ID")),
			huh.NewInput().
				Title("Backend URL").
				Description("Where the sentient-inbox API is running").
				Placeholder(model.DefaultBackendURL).
				Value(&m.fields.BackendURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Redirect URI").
				Description("Must be registered for the client; the dashboard listens on its host and port").
				Placeholder(model.DefaultRedirectURI).
				Value(&m.fields.RedirectURI).
				Validate(validateRedirect),
			huh.NewSelect[string]().
				Title("Callback mode").
				Options(
					huh.NewOption("code - the dashboard exchanges the code with the backend", "code"),
					huh.NewOption("token - the backend redirect already issued a session token", "token"),
				).
				Value(&m.fields.Mode),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		checkCmd := m.startCheck()
		return m, checkCmd
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func (m *Model) startCheck() tea.Cmd {
	if m.check == nil {
		return m.save()
	}
	m.mode = ModeChecking
	m.checkErr = nil
	check := m.check
	baseURL := strings.TrimSpace(m.fields.BackendURL)
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			return checkResultMsg{err: check(ctx, baseURL)}
		},
	)
}

// save writes the edited configuration.
func (m Model) save() tea.Cmd {
	cfg := m.base
	cfg.Auth.ClientID = strings.TrimSpace(m.fields.ClientID)
	cfg.Auth.RedirectURI = strings.TrimSpace(m.fields.RedirectURI)
	cfg.Auth.Mode = m.fields.Mode
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(m.fields.BackendURL), "/")
	path := m.path

	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{cfg: &cfg}
	}
}

// --- View ---

// View renders the setup UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.viewForm()
	case ModeChecking:
		return m.viewChecking()
	case ModeResult:
		return m.viewResult()
	default:
		return ""
	}
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(m.form.View())
}

func (m Model) viewChecking() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Checking %s...\n\nPress esc to cancel.",
		m.spinner.View(),
		m.fields.BackendURL,
	)

	return style.Render(content)
}

func (m Model) viewResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	errStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorRed)

	title := "Backend unreachable"
	if m.statusMsg != "" {
		title = m.statusMsg
	}
	detail := ""
	if m.checkErr != nil {
		detail = m.checkErr.Error()
	}

	content := errStyle.Render(title) + "\n\n" +
		detail + "\n\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render("r retry | s save anyway | enter/esc edit")

	return style.Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m *Model) resetFormFields() {
	m.fields.ClientID = m.base.Auth.ClientID
	m.fields.BackendURL = m.base.Backend.BaseURL
	m.fields.RedirectURI = m.base.Auth.RedirectURI
	m.fields.Mode = m.base.Auth.Mode
	if m.fields.BackendURL == "" {
		m.fields.BackendURL = model.DefaultBackendURL
	}
	if m.fields.RedirectURI == "" {
		m.fields.RedirectURI = model.DefaultRedirectURI
	}
	if m.fields.Mode == "" {
		m.fields.Mode = "code"
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:8000)")
	}
	return nil
}

// validateRedirect also requires a path: the callback server routes on it.
func validateRedirect(s string) error {
	if err := validateURL(s); err != nil {
		return err
	}
	parsed, _ := url.Parse(strings.TrimSpace(s))
	if parsed.Path == "" || parsed.Path == "/" {
		return fmt.Errorf("redirect URI needs a path (e.g., /auth/callback)")
	}
	return nil
}
