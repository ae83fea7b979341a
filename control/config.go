// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Relay configuration loaded from YAML, with defaults for every field.

package control

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCapacity is the bounded inbound channel size, 2*47438.
const DefaultCapacity = 94876

// Poll modes.
const (
	PollEvent = "event"
	PollBusy  = "busy"
)

type Config struct {
	Relay    RelayConfig    `yaml:"relay"`
	Terminal TerminalConfig `yaml:"terminal"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type RelayConfig struct {
	// Capacity bounds the netio->dispatcher channel and sizes stdin reads.
	Capacity int `yaml:"capacity"`
	// ReadChunk is the socket read size used while draining.
	ReadChunk int `yaml:"read_chunk"`
	// PollMode is "event" (suspend on readiness) or "busy" (spin).
	PollMode       string        `yaml:"poll_mode"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type TerminalConfig struct {
	Raw bool `yaml:"raw"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Capacity:       DefaultCapacity,
			ReadChunk:      512,
			PollMode:       PollEvent,
			ConnectTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Relay.Capacity < 1 {
		return fmt.Errorf("config: relay.capacity must be positive, got %d", c.Relay.Capacity)
	}
	if c.Relay.ReadChunk < 1 {
		return fmt.Errorf("config: relay.read_chunk must be positive, got %d", c.Relay.ReadChunk)
	}
	switch c.Relay.PollMode {
	case PollEvent, PollBusy:
	default:
		return fmt.Errorf("config: relay.poll_mode %q is not one of %q, %q", c.Relay.PollMode, PollEvent, PollBusy)
	}
	if c.Relay.ConnectTimeout < 0 {
		return fmt.Errorf("config: relay.connect_timeout must not be negative")
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not supported", c.Logging.Format)
	}
	return nil
}
