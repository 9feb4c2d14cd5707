// Command aochat is a terminal client for the Anarchy Online chat network.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/tyrbo/aochat/pkg/client"
	"github.com/tyrbo/aochat/pkg/client/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	defaultConfig, err := client.DefaultConfigPath()
	if err != nil {
		return err
	}

	configPath := flag.String("config", defaultConfig, "Path to the config file")
	server := flag.String("server", "", "Server address, overrides the config file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Log file path, overrides the config file")
	flag.Parse()

	cfg, err := client.LoadConfig(*configPath)
	if errors.Is(err, client.ErrConfigCreated) {
		fmt.Printf("A config file was created at %s\nFill in your credentials and run again.\n", *configPath)
		os.Exit(1)
	}
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Server.Address = *server
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	statePath, err := defaultStatePath()
	if err != nil {
		return err
	}
	state, err := client.OpenState(statePath)
	if err != nil {
		return err
	}
	defer state.Close()

	conn, err := client.NewConnection(cfg.Server.Address, logger)
	if err != nil {
		return err
	}
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Server.Address, err)
	}
	defer conn.Close()
	if err := state.SaveSuccessfulConnection(conn.GetRawAddress(), conn.GetConnectionType()); err != nil {
		logger.Debug().Err(err).Msg("failed to record connection history")
	}

	commands := make(chan client.Command)
	queries := make(chan client.StateQuery)
	updates := make(chan client.UiUpdate, 256)

	session := client.NewSession(conn, client.SessionConfig{
		Username:  cfg.Login.Username,
		Password:  cfg.Login.Password,
		Character: cfg.Login.Character,
	}, commands, queries, updates, logger)

	sessionErr := make(chan error, 1)
	go func() {
		err := session.Run()
		// The UI quits when this channel closes
		close(updates)
		sessionErr <- err
	}()

	model := ui.NewModel(conn, state, commands, queries, updates, cfg.Login.Character, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal error: %w", err)
	}

	if err := state.SetLastCharacter(cfg.Login.Character); err != nil {
		logger.Debug().Err(err).Msg("failed to remember character")
	}
	if state.GetFirstRun() {
		if err := state.SetFirstRunComplete(); err != nil {
			logger.Debug().Err(err).Msg("failed to record first run")
		}
	}

	conn.Close()
	select {
	case err := <-sessionErr:
		return err
	case <-time.After(2 * time.Second):
		return nil
	}
}

// newLogger builds the file-backed logger. The terminal belongs to the UI,
// so there is no console sink.
func newLogger(cfg client.LogSection) (zerolog.Logger, func(), error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.File == "" {
		return zerolog.Nop(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(f).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return logger, func() { f.Close() }, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func defaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "aochat", "state.db"), nil
}
