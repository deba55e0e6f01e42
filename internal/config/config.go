// Package config provides reading and writing of ipfa configuration.
// Supports both global (~/.ipfa/config.yaml) and local (.ipfa/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: goes to the file that was read.
//
// Environment variables (IPF_URL, IPF_TOKEN, IPF_VERIFY, IPF_TIMEOUT,
// AI_MODEL, AI_API_KEY, AI_BASE_URL) override file values at load time but
// are never written back.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.ipfa/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is directory-specific config in .ipfa/config.yaml
	ScopeLocal
)

// IPF holds the IP Fabric connection settings.
type IPF struct {
	URL      string `yaml:"url,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Verify   *bool  `yaml:"verify,omitempty"`
	Timeout  *int   `yaml:"timeout,omitempty"` // seconds
	Snapshot string `yaml:"snapshot,omitempty"`
}

// AI holds the chat model settings.
type AI struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// Chat holds chat loop options.
type Chat struct {
	MaxTurns *int `yaml:"max_turns,omitempty"`
}

// Defaults applied when not configured.
const (
	DefaultTimeout  = 60 // seconds
	DefaultSnapshot = "$last"
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultModel    = "gpt-4o"
	DefaultMaxTurns = 12
)

// Validation bounds for configuration values.
const (
	MinTimeout  = 1
	MaxTimeout  = 3600
	MinMaxTurns = 1
	MaxMaxTurns = 100
)

// Config contains configuration for ipfa.
type Config struct {
	IPF  IPF  `yaml:"ipf,omitempty"`
	AI   AI   `yaml:"ai,omitempty"`
	Chat Chat `yaml:"chat,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
	// file holds values as read from disk, before env overrides, so Save
	// never persists secrets that only came from the environment.
	file *Config
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.IPF.Timeout != nil {
		v := *c.IPF.Timeout
		if v < MinTimeout || v > MaxTimeout {
			return fmt.Errorf("%w: ipf.timeout must be between %d and %d, got %d",
				ErrInvalidValue, MinTimeout, MaxTimeout, v)
		}
	}
	if c.Chat.MaxTurns != nil {
		v := *c.Chat.MaxTurns
		if v < MinMaxTurns || v > MaxMaxTurns {
			return fmt.Errorf("%w: chat.max_turns must be between %d and %d, got %d",
				ErrInvalidValue, MinMaxTurns, MaxMaxTurns, v)
		}
	}
	return nil
}

// Verify returns whether TLS certificates are verified (defaults to true).
func (c *Config) Verify() bool {
	if c.IPF.Verify == nil {
		return true
	}
	return *c.IPF.Verify
}

// Timeout returns the per-request API timeout (defaults to 60s).
func (c *Config) Timeout() time.Duration {
	if c.IPF.Timeout == nil {
		return DefaultTimeout * time.Second
	}
	return time.Duration(*c.IPF.Timeout) * time.Second
}

// Snapshot returns the snapshot new sessions start on (defaults to $last).
func (c *Config) Snapshot() string {
	if c.IPF.Snapshot == "" {
		return DefaultSnapshot
	}
	return c.IPF.Snapshot
}

// BaseURL returns the chat completions API root.
func (c *Config) BaseURL() string {
	if c.AI.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.AI.BaseURL
}

// Model returns the chat model name.
func (c *Config) Model() string {
	if c.AI.Model == "" {
		return DefaultModel
	}
	return c.AI.Model
}

// MaxTurns returns the maximum tool-calling rounds per user message.
func (c *Config) MaxTurns() int {
	if c.Chat.MaxTurns == nil {
		return DefaultMaxTurns
	}
	return *c.Chat.MaxTurns
}

// LocalPath returns the path to the local config file.
func LocalPath() string {
	return filepath.Join(".ipfa", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.ipfa/config.yaml
func GlobalPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Dir returns the global ipfa directory (~/.ipfa), used for history and logs.
// Falls back to .ipfa in the working directory when home is unknown.
func Dir() string {
	if d := os.Getenv("IPFA_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ipfa"
	}
	return filepath.Join(home, ".ipfa")
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	path := pathForScope(scope)
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
			}
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		}
	}

	file := *cfg
	cfg.file = &file
	cfg.path = path
	cfg.scope = scope

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded values.
func (c *Config) applyEnv() error {
	if v := os.Getenv("IPF_URL"); v != "" {
		c.IPF.URL = v
	}
	if v := os.Getenv("IPF_TOKEN"); v != "" {
		c.IPF.Token = v
	}
	if v := os.Getenv("IPF_VERIFY"); v != "" {
		b := parseBool(v)
		c.IPF.Verify = &b
	}
	if v := os.Getenv("IPF_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: IPF_TIMEOUT must be an integer number of seconds", ErrInvalidValue)
		}
		c.IPF.Timeout = &n
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	return c.Validate()
}

// parseBool accepts the spellings the original env handling did.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Save writes the configuration to its original location. Values that came
// only from environment variables are not persisted.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// SaveScope writes the configuration to the specified scope.
func (c *Config) SaveScope(scope Scope) error {
	path := pathForScope(scope)
	if path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(path)
}

// saveToPath writes configuration to a specific filesystem path.
// The file may hold tokens, so it is created with mode 0600.
func (c *Config) saveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	src := c
	if c.file != nil {
		src = c.file
	}
	data, err := yaml.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// pathForScope returns the filesystem path for a given scope.
func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}
