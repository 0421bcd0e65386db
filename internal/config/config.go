package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "kanban.yml"

// Backend modes
const (
	ModeRedis = "redis" // talk to Redis directly
	ModeHTTP  = "http"  // talk to a kanband server
)

// KanbanConfig represents the top-level kanban.yml configuration
type KanbanConfig struct {
	Version        string         `yaml:"version"`
	Instance       string         `yaml:"instance,omitempty"`   // Redis key namespace, default "default"
	BoardName      string         `yaml:"board_name,omitempty"` // Used when the board is created lazily
	Backend        *BackendConfig `yaml:"backend,omitempty"`
	Timeout        string         `yaml:"timeout,omitempty"` // Per remote call, Go duration syntax
	Server         *ServerConfig  `yaml:"server,omitempty"`
	DefaultColumns []string       `yaml:"default_columns,omitempty"` // Seeded when the board is created

	timeout time.Duration
}

// BackendConfig selects how the client reaches the board store
type BackendConfig struct {
	Mode     string `yaml:"mode,omitempty"`      // "redis" or "http"
	RedisURL string `yaml:"redis_url,omitempty"` // Used in redis mode and by kanband
	APIURL   string `yaml:"api_url,omitempty"`   // Used in http mode
}

// ServerConfig configures kanband
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// Default returns a validated configuration with every default applied.
func Default() *KanbanConfig {
	cfg := &KanbanConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate applies defaults and performs strict validation on the configuration
func (c *KanbanConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = "default"
	}
	if strings.ContainsAny(c.Instance, ": \t\n") {
		return fmt.Errorf("instance %q must not contain ':' or whitespace", c.Instance)
	}

	if strings.TrimSpace(c.BoardName) == "" {
		c.BoardName = "My Kanban Board"
	}

	if c.Backend == nil {
		c.Backend = &BackendConfig{}
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	c.timeout = d

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}

	if len(c.DefaultColumns) == 0 {
		c.DefaultColumns = []string{"To Do", "In Progress", "Done"}
	}
	for i, name := range c.DefaultColumns {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("default_columns[%d]: name cannot be empty", i)
		}
	}

	return nil
}

// Validate applies backend defaults and checks the selected mode's settings
func (b *BackendConfig) Validate() error {
	if b.Mode == "" {
		b.Mode = ModeRedis
	}
	if b.Mode != ModeRedis && b.Mode != ModeHTTP {
		return fmt.Errorf("backend.mode must be %q or %q, got %q", ModeRedis, ModeHTTP, b.Mode)
	}

	if b.RedisURL == "" {
		b.RedisURL = "redis://localhost:6379"
	}
	if _, err := redis.ParseURL(b.RedisURL); err != nil {
		return fmt.Errorf("invalid backend.redis_url: %w", err)
	}

	if b.APIURL == "" {
		b.APIURL = "http://localhost:8080"
	}
	u, err := url.Parse(b.APIURL)
	if err != nil {
		return fmt.Errorf("invalid backend.api_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend.api_url %q: expected http(s)://host[:port]", b.APIURL)
	}

	return nil
}

// TimeoutDuration returns the parsed per-call timeout. Valid after Validate.
func (c *KanbanConfig) TimeoutDuration() time.Duration {
	return c.timeout
}

// Load reads and validates a kanban.yml file
func Load(path string) (*KanbanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config KanbanConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*KanbanConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
