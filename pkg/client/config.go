package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrConfigCreated is returned when no config file existed and a template
// was written for the user to fill in
var ErrConfigCreated = errors.New("config file created, fill in your credentials")

// Config is the client configuration file
type Config struct {
	Server ServerSection `toml:"server"`
	Login  LoginSection  `toml:"login"`
	Log    LogSection    `toml:"log"`
}

type ServerSection struct {
	Address string `toml:"address"`
}

type LoginSection struct {
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Character string `toml:"character"`
}

type LogSection struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerSection{
			Address: "chat.d1.funcom.com:7105",
		},
		Log: LogSection{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns the per-user config file location
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(configDir, "aochat", "config.toml"), nil
}

// LoadConfig reads the config file, creating a template when none exists
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaultConfig(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, fmt.Errorf("%w: %s", ErrConfigCreated, path)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks that the fields the login handshake needs are present
func (c Config) Validate() error {
	var missing []string
	if c.Login.Username == "" {
		missing = append(missing, "login.username")
	}
	if c.Login.Password == "" {
		missing = append(missing, "login.password")
	}
	if c.Login.Character == "" {
		missing = append(missing, "login.character")
	}
	if c.Server.Address == "" {
		missing = append(missing, "server.address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}
	return nil
}
