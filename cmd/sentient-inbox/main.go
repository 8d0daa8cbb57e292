// Command sentient-inbox is the terminal dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memakingbeats/sentient-inbox-main/internal/app"
	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	logPath := flag.String("log", filepath.Join(os.TempDir(), "sentient-inbox.log"), "path to the log file")
	logLevel := flag.String("log-level", "info", "log level (error, warn, info, debug, trace)")
	flag.Parse()

	if err := run(*configPath, *logPath, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "sentient-inbox: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logPath, logLevel string) error {
	logFile, err := log.ToFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if err := log.SetLogLevel(logLevel); err != nil {
		return err
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	m := app.New(cfg, configPath, app.Connect, app.CheckBackend)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}

	if fm, ok := final.(app.Model); ok {
		fm.Shutdown()
	}
	log.LogInfoWithFields("main", "dashboard exited", nil)
	return nil
}
