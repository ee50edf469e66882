// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for taskrun.
//
// Configuration lives in a single TOML file with sensible defaults and
// environment variable overrides.
//
// Configuration file location (in order of precedence):
//   - TASKRUN_* environment variables
//   - ~/.taskrun/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config represents the complete taskrun configuration.
type Config struct {
	// OllamaURL is the base URL of the Ollama server
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// Model is the model used for ask and chat
	Model string `toml:"model" json:"model"`
	// TasksFile is the path to the tasks JSON file.
	// Relative paths resolve against the working directory.
	TasksFile string `toml:"tasks_file" json:"tasks_file"`
	// RenderMarkdown renders complete responses through glamour when
	// stdout is a TTY, instead of streaming tokens raw
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// ConnectTimeoutSecs bounds the reachability preflight. Streaming
	// responses themselves are never subject to an overall timeout.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
}

// Defaults for every field. The Ollama URL matches the server's stock
// listen address.
const (
	DefaultOllamaURL          = "http://localhost:11434"
	DefaultModel              = "llama3.2"
	DefaultTasksFile          = "tasks.json"
	DefaultConnectTimeoutSecs = 5
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		OllamaURL:          DefaultOllamaURL,
		Model:              DefaultModel,
		TasksFile:          DefaultTasksFile,
		RenderMarkdown:     false,
		ConnectTimeoutSecs: DefaultConnectTimeoutSecs,
	}
}

// ConnectTimeout returns the preflight timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the taskrun configuration directory (~/.taskrun).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".taskrun"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
// SECURITY: 0700 - the directory also holds the chat input history.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the configuration from the config file.
// A missing file is not an error: defaults apply. Environment overrides
// are applied after the file, then the result is validated.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from an explicit file path.
// Unlike Load, a missing file here is an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems; warn and continue
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// fillDefaults replaces empty fields with their defaults.
// Keys explicitly set to "" in the file fall back rather than break commands.
func (c *Config) fillDefaults() {
	if c.OllamaURL == "" {
		c.OllamaURL = DefaultOllamaURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.TasksFile == "" {
		c.TasksFile = DefaultTasksFile
	}
	if c.ConnectTimeoutSecs <= 0 {
		c.ConnectTimeoutSecs = DefaultConnectTimeoutSecs
	}
}

// ApplyEnvOverrides applies TASKRUN_* environment variables over the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TASKRUN_OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
	if v := os.Getenv("TASKRUN_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("TASKRUN_TASKS_FILE"); v != "" {
		c.TasksFile = v
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	// Write header comment
	fmt.Fprintln(file, "# taskrun configuration file")
	fmt.Fprintln(file, "# Generated by taskrun - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	u, err := url.Parse(c.OllamaURL)
	if err != nil {
		return &ValidationError{Field: "ollama_url", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "ollama_url", Message: "URL scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "ollama_url", Message: "URL has no host"}
	}

	if strings.TrimSpace(c.Model) == "" {
		return &ValidationError{Field: "model", Message: "model must not be empty"}
	}

	if strings.TrimSpace(c.TasksFile) == "" {
		return &ValidationError{Field: "tasks_file", Message: "tasks file path must not be empty"}
	}

	if c.ConnectTimeoutSecs <= 0 {
		return &ValidationError{Field: "connect_timeout_secs", Message: "timeout must be positive"}
	}

	return nil
}

// =============================================================================
// KEY ACCESS (config get/set CLI surface)
// =============================================================================

// GetAllKeys returns all settable configuration keys.
func GetAllKeys() []string {
	return []string{
		"ollama_url",
		"model",
		"tasks_file",
		"render_markdown",
		"connect_timeout_secs",
	}
}

// Get returns the value for a flat configuration key.
func (c *Config) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case "ollama_url":
		return c.OllamaURL, nil
	case "model":
		return c.Model, nil
	case "tasks_file":
		return c.TasksFile, nil
	case "render_markdown":
		return strconv.FormatBool(c.RenderMarkdown), nil
	case "connect_timeout_secs":
		return strconv.Itoa(c.ConnectTimeoutSecs), nil
	default:
		return "", fmt.Errorf("unknown config key: %s (valid keys: %s)",
			key, strings.Join(GetAllKeys(), ", "))
	}
}

// Set assigns a flat configuration key from its string representation.
// The caller is expected to Validate and Save afterwards.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "ollama_url":
		c.OllamaURL = value
	case "model":
		c.Model = value
	case "tasks_file":
		c.TasksFile = value
	case "render_markdown":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("render_markdown must be true or false, got %q", value)
		}
		c.RenderMarkdown = b
	case "connect_timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("connect_timeout_secs must be a positive integer, got %q", value)
		}
		c.ConnectTimeoutSecs = n
	default:
		return fmt.Errorf("unknown config key: %s (valid keys: %s)",
			key, strings.Join(GetAllKeys(), ", "))
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG SINGLETON
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// A load failure falls back to defaults with a warning rather than
// aborting the command.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()

	// Burn the lazy load; a later Global() must not clobber this value
	globalConfigOnce.Do(func() {})
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
