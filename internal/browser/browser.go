// Package browser opens the consent window as a standalone browser app
// window whose lifetime is tied to a child process.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/memakingbeats/sentient-inbox-main/internal/auth"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
)

// ErrNoBrowser is returned when no usable browser is installed.
var ErrNoBrowser = errors.New("no supported browser found")

// Chromium-family binaries, tried in order.
var candidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"microsoft-edge",
	"brave-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// Launcher implements auth.Opener.
type Launcher struct {
	// Command overrides browser discovery.
	Command string

	// ProfileDir holds one browser profile per window name. A private
	// profile keeps the child process alive until its window closes.
	ProfileDir string

	// FallbackToSystem opens the URL with the OS handler when no
	// Chromium-family browser exists. Such windows cannot be tracked.
	FallbackToSystem bool

	lookPath func(string) (string, error)

	mu      sync.Mutex
	windows map[string]*Window
}

// NewLauncher returns a launcher using command, or discovery when empty.
func NewLauncher(command string) *Launcher {
	return &Launcher{
		Command:          command,
		ProfileDir:       filepath.Join(os.TempDir(), "sentient-inbox-browser"),
		FallbackToSystem: true,
	}
}

// Open launches url in an app window. A live window with the same name is
// replaced, so at most one consent window per name exists.
func (l *Launcher) Open(_ context.Context, url string, opts auth.PopupOptions) (auth.Popup, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windows == nil {
		l.windows = make(map[string]*Window)
	}
	if prev, ok := l.windows[opts.Name]; ok {
		_ = prev.Close()
		delete(l.windows, opts.Name)
	}

	bin, err := l.resolve()
	if err != nil {
		if !l.FallbackToSystem {
			return nil, err
		}
		return l.openSystem(url)
	}

	profile := filepath.Join(l.ProfileDir, opts.Name)
	if err := os.MkdirAll(profile, 0o700); err != nil {
		return nil, fmt.Errorf("creating browser profile: %w", err)
	}

	cmd := exec.Command(bin,
		"--app="+url,
		fmt.Sprintf("--window-size=%d,%d", opts.Width, opts.Height),
		"--user-data-dir="+profile,
		"--no-first-run",
		"--no-default-browser-check",
	)
	w, err := start(cmd)
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", bin, err)
	}
	l.windows[opts.Name] = w

	log.LogDebugWithFields("browser", "consent window opened", map[string]any{
		"browser": bin,
		"name":    opts.Name,
		"pid":     cmd.Process.Pid,
	})
	return w, nil
}

// CloseAll closes every tracked window.
func (l *Launcher) CloseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, w := range l.windows {
		_ = w.Close()
		delete(l.windows, name)
	}
}

func (l *Launcher) resolve() (string, error) {
	look := l.lookPath
	if look == nil {
		look = exec.LookPath
	}
	if l.Command != "" {
		p, err := look(l.Command)
		if err != nil {
			return "", fmt.Errorf("browser %q: %w", l.Command, err)
		}
		return p, nil
	}
	for _, c := range candidates {
		if p, err := look(c); err == nil {
			return p, nil
		}
	}
	return "", ErrNoBrowser
}

func (l *Launcher) openSystem(url string) (auth.Popup, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBrowser, err)
	}
	go func() { _ = cmd.Wait() }()

	log.LogWarnWithFields("browser", "opened consent page in the default browser; closing it will not be detected", nil)
	return untracked{}, nil
}

// Window is a consent window backed by a browser process.
type Window struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

func start(cmd *exec.Cmd) (*Window, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	w := &Window{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(w.done)
	}()
	return w, nil
}

// Closed reports whether the browser process has exited.
func (w *Window) Closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Close terminates the browser process and waits for it to exit.
func (w *Window) Close() error {
	var err error
	w.once.Do(func() {
		if w.Closed() {
			return
		}
		if kerr := w.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
			return
		}
		<-w.done
	})
	return err
}

// untracked stands in for a tab in the user's own browser. It never reports
// closure; the authorization timeout bounds the attempt instead.
type untracked struct{}

func (untracked) Closed() bool { return false }
func (untracked) Close() error { return nil }
