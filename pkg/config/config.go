// Package config loads cbc settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File names searched by Load.
const (
	ProjectFile = ".cbc.yaml"
	UserDir     = ".cbc"
	UserFile    = "config.yaml"
)

// Config holds the effective cbc settings.
type Config struct {
	// MaxIterations caps loop iterations per run; 0 is unlimited.
	MaxIterations int64 `yaml:"max_iterations"`
	// TimeLimitMs caps wall-clock evaluation time; 0 is unlimited.
	TimeLimitMs int64 `yaml:"time_limit_ms"`
	// DebugOutput selects where print writes: stdout, stderr or discard.
	DebugOutput        string `yaml:"debug_output"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`
	HistoryFile        string `yaml:"history_file"`
	Prompt             string `yaml:"prompt"`
	ContinuationPrompt string `yaml:"continuation_prompt"`

	// Path is the file the settings came from, empty for built-in defaults.
	Path string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DebugOutput:        "stdout",
		LogLevel:           "warn",
		LogFormat:          "text",
		HistoryFile:        filepath.Join("~", UserDir, "history"),
		Prompt:             "==> ",
		ContinuationPrompt: "... ",
	}
}

// Load resolves the configuration. Precedence: explicit path (must exist),
// project file (projectDir/.cbc.yaml), user file (~/.cbc/config.yaml),
// built-in defaults. A file that exists but does not parse is an error.
func Load(projectDir, explicit string) (*Config, error) {
	if explicit != "" {
		return LoadFile(explicit)
	}

	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, UserDir, UserFile))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

// LoadFile reads settings from path on top of the defaults. Unknown keys
// are rejected.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Decode parses YAML settings from r on top of the defaults. Empty input
// yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated fields and limits.
func (c *Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations)
	}
	if c.TimeLimitMs < 0 {
		return fmt.Errorf("time_limit_ms must not be negative, got %d", c.TimeLimitMs)
	}
	switch c.DebugOutput {
	case "stdout", "stderr", "discard":
	default:
		return fmt.Errorf("debug_output must be stdout, stderr or discard, got %q", c.DebugOutput)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
}

// Level returns the configured log level, defaulting to warn.
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// Logger builds a logger writing to w in the configured format. verbose
// forces the debug level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DebugWriter picks the print destination among the given streams.
func (c *Config) DebugWriter(stdout, stderr io.Writer) io.Writer {
	switch c.DebugOutput {
	case "stderr":
		return stderr
	case "discard":
		return io.Discard
	}
	return stdout
}

// HistoryPath returns the history file with a leading ~ expanded. It is
// empty when no history should be kept.
func (c *Config) HistoryPath() string {
	path := c.HistoryFile
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(home, path[1:])
	}
	return path
}

// Marshal renders the settings as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
