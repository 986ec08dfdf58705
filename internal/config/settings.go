package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConcurrency = 10
	DefaultRetries     = 5
	DefaultOutput      = "."

	settingsDir  = "ghdir"
	settingsFile = "config.toml"
)

// Settings holds user defaults read from config.toml. Command-line flags
// override every field.
type Settings struct {
	Token       string `toml:"token,omitempty"`
	Concurrency int    `toml:"concurrency,omitempty"`
	Retries     int    `toml:"retries,omitempty"`
	Output      string `toml:"output,omitempty"`
	Plain       bool   `toml:"plain,omitempty"`
	Debug       bool   `toml:"debug,omitempty"`
	LogFormat   string `toml:"log_format,omitempty"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Concurrency: DefaultConcurrency,
		Retries:     DefaultRetries,
		Output:      DefaultOutput,
	}
}

// DefaultSettingsPath returns $XDG_CONFIG_HOME/ghdir/config.toml (or the
// platform equivalent). It returns "" when no config directory is known.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, settingsDir, settingsFile)
}

// LoadSettings reads a config.toml file from the given path.
// If the path is empty or the file does not exist it returns the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if _, err := toml.Decode(string(data), &s); err != nil {
		return s, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	// Zero values in the file mean "not set".
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.Output == "" {
		s.Output = DefaultOutput
	}

	return s, s.Validate()
}

// Save writes the settings to the given path, creating parent directories.
func (s Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating settings file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return nil
}

// Validate rejects values the download pipeline cannot run with.
func (s Settings) Validate() error {
	if s.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency %d: must be at least 1", s.Concurrency)
	}
	if s.Retries < 0 {
		return fmt.Errorf("invalid retries %d: must not be negative", s.Retries)
	}
	switch s.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", s.LogFormat)
	}
	return nil
}
