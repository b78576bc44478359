package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string `env:"PONGCTL_SERVER" envDefault:"http://localhost:8080"`
	Output    string `env:"PONGCTL_OUTPUT" envDefault:"text"`
	Verbose   bool   `env:"PONGCTL_VERBOSE"`
}

// DefaultConfig returns a Config populated from the environment
func DefaultConfig() *Config {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		// Fall back to built-in defaults on malformed env values
		return &Config{ServerURL: "http://localhost:8080", Output: "text"}
	}
	return c
}

// Validate checks the flag and environment values
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("--server must not be empty")
	}
	switch c.Output {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("--output must be text or json, got %q", c.Output)
	}
}
