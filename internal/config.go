package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration: the same "struct with yaml
// tags plus post-unmarshal defaults" shape this codebase's original
// LoadConfig used, now describing an inbound listener and its users
// instead of a pool of outbound upstreams.
type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	Users   []UserConfig  `yaml:"users"`
	Dial    DialConfig    `yaml:"dial"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type ListenConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type UserConfig struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

type DialConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Fwmark  uint32        `yaml:"fwmark"` // 0 = disabled
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the metrics/health listener
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads and validates path, filling in defaults the same way
// this codebase's original LoadConfig did.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Addr == "" {
		c.Listen.Addr = "0.0.0.0:443"
	}
	if c.Listen.Path == "" {
		c.Listen.Path = "/"
	}
	if c.Dial.Timeout == 0 {
		c.Dial.Timeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the configuration is usable: at least one named
// user, and every configured id a syntactically valid UUID. It defers to
// ParseUserID rather than duplicating its parsing, so config-load time is
// the only place a malformed id can be discovered (closing OQ-1: a
// length-mismatched id is rejected here, long before Authenticate ever
// runs a comparison against it).
func (c *Config) Validate() error {
	if len(c.Users) == 0 {
		return fmt.Errorf("config: at least one user is required")
	}
	seen := make(map[UserID]string, len(c.Users))
	for _, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("config: user with id %q has no name", u.ID)
		}
		id, err := ParseUserID(u.ID)
		if err != nil {
			return fmt.Errorf("config: user %q: %w", u.Name, err)
		}
		if other, dup := seen[id]; dup {
			return fmt.Errorf("config: user %q and %q share the same id", u.Name, other)
		}
		seen[id] = u.Name
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	return nil
}

// UserSet returns the configured users keyed by UserID, the lookup shape
// the server needs at request time. Validate must have already succeeded;
// this does not re-check for parse errors.
func (c *Config) UserSet() map[UserID]string {
	out := make(map[UserID]string, len(c.Users))
	for _, u := range c.Users {
		id, _ := ParseUserID(u.ID)
		out[id] = u.Name
	}
	return out
}
