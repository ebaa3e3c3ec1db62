// Package config handles the application configuration file and the chat
// settings kept in the persistence gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/diogo/glmchat/internal/models"
)

// Environment variables.
const (
	EnvHome    = "GLMCHAT_HOME"
	EnvAPIKey  = "GLMCHAT_API_KEY"
	EnvBaseURL = "GLMCHAT_BASE_URL"
	EnvLogLvl  = "GLMCHAT_LOG_LEVEL"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style string `toml:"style"` // "dark", "light", "notty" or path to a JSON theme
	Width int    `toml:"width"`
	Emoji bool   `toml:"emoji"`
}

// VideoConfig controls polling of asynchronous video tasks.
type VideoConfig struct {
	InitialDelaySeconds int `toml:"initial_delay_seconds"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// TimeoutMinutes bounds how long a task is polled; 0 polls until a
	// terminal status.
	TimeoutMinutes int `toml:"timeout_minutes"`
}

// Config represents the user configuration
type Config struct {
	BaseURL           string         `toml:"base_url"`
	StorageBackend    string         `toml:"storage_backend"` // "sqlite", "file" or "memory"
	DataDir           string         `toml:"data_dir,omitempty"`
	ExportDir         string         `toml:"export_dir,omitempty"`
	RequestTimeout    int            `toml:"request_timeout"` // seconds
	RequestsPerSecond float64        `toml:"requests_per_second"`
	CopyToClipboard   bool           `toml:"copy_to_clipboard"`
	Verbose           bool           `toml:"verbose"`
	LogLevel          string         `toml:"log_level"`
	Video             VideoConfig    `toml:"video"`
	Markdown          MarkdownConfig `toml:"markdown"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{Style: "dark", Width: 80, Emoji: true}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:           models.DefaultBaseURL,
		StorageBackend:    "sqlite",
		RequestTimeout:    120,
		RequestsPerSecond: 2,
		LogLevel:          "warn",
		Video: VideoConfig{
			InitialDelaySeconds: 5,
			PollIntervalSeconds: 5,
		},
		Markdown: DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".glmchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the API key
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// ResolveDataDir returns the directory holding the durable store.
func ResolveDataDir(cfg Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return GetConfigDir()
}

// ResolveExportDir returns the directory exports and downloads go to,
// creating it if necessary.
func ResolveExportDir(cfg Config) (string, error) {
	dir := cfg.ExportDir
	if dir == "" {
		base, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "exports")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	return dir, nil
}

// LoadEnvFiles loads .env from the working directory and the config
// directory. Variables already set in the environment win.
func LoadEnvFiles() {
	candidates := []string{".env"}
	if dir, err := GetConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		cfg = DefaultConfig()
		cfg.ApplyEnvOverrides()
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.StorageBackend == "" {
		c.StorageBackend = def.StorageBackend
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Video.InitialDelaySeconds < 0 {
		c.Video.InitialDelaySeconds = def.Video.InitialDelaySeconds
	}
	if c.Video.PollIntervalSeconds <= 0 {
		c.Video.PollIntervalSeconds = def.Video.PollIntervalSeconds
	}
	if c.Markdown.Style == "" {
		c.Markdown.Style = def.Markdown.Style
	}
	if c.Markdown.Width <= 0 {
		c.Markdown.Width = def.Markdown.Width
	}
}

// ApplyEnvOverrides applies GLMCHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if url := os.Getenv(EnvBaseURL); url != "" {
		c.BaseURL = strings.TrimRight(url, "/")
	}
	if lvl := os.Getenv(EnvLogLvl); lvl != "" {
		c.LogLevel = lvl
	}
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# glmchat configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by Set.
func ConfigKeys() []string {
	return []string{
		"base_url", "storage_backend", "data_dir", "export_dir",
		"request_timeout", "requests_per_second", "copy_to_clipboard",
		"verbose", "log_level", "video.initial_delay_seconds",
		"video.poll_interval_seconds", "video.timeout_minutes",
		"markdown.style", "markdown.width", "markdown.emoji",
	}
}

// Set assigns a configuration value from its string form.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "base_url":
		c.BaseURL = strings.TrimRight(value, "/")
	case "storage_backend":
		switch value {
		case "sqlite", "file", "memory":
			c.StorageBackend = value
		default:
			return fmt.Errorf("invalid storage_backend %q: must be sqlite, file or memory", value)
		}
	case "data_dir":
		c.DataDir = value
	case "export_dir":
		c.ExportDir = value
	case "request_timeout":
		c.RequestTimeout, err = parsePositiveInt(value)
	case "requests_per_second":
		c.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
		if err == nil && c.RequestsPerSecond <= 0 {
			err = fmt.Errorf("must be positive")
		}
	case "copy_to_clipboard":
		c.CopyToClipboard, err = strconv.ParseBool(value)
	case "verbose":
		c.Verbose, err = strconv.ParseBool(value)
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
			c.LogLevel = value
		default:
			return fmt.Errorf("invalid log_level %q", value)
		}
	case "video.initial_delay_seconds":
		c.Video.InitialDelaySeconds, err = strconv.Atoi(value)
		if err == nil && c.Video.InitialDelaySeconds < 0 {
			err = fmt.Errorf("must not be negative")
		}
	case "video.poll_interval_seconds":
		c.Video.PollIntervalSeconds, err = parsePositiveInt(value)
	case "video.timeout_minutes":
		c.Video.TimeoutMinutes, err = strconv.Atoi(value)
	case "markdown.style":
		c.Markdown.Style = value
	case "markdown.width":
		c.Markdown.Width, err = parsePositiveInt(value)
	case "markdown.emoji":
		c.Markdown.Emoji, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func parsePositiveInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
