package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// config holds environment-derived settings. Command-line flags override
// these after parsing.
type config struct {
	Provider string `env:"CLI_AGENT_PROVIDER" envDefault:"openai"`
	Model    string `env:"CLI_AGENT_MODEL" envDefault:"gpt-4o"`
	APIKey   string `env:"CLI_AGENT_API_KEY"`

	MaxTurns    int  `env:"CLI_AGENT_MAX_TURNS" envDefault:"25"`
	AutoApprove bool `env:"CLI_AGENT_AUTO_APPROVE" envDefault:"false"`
	Verbose     bool `env:"CLI_AGENT_VERBOSE" envDefault:"false"`

	CommandTimeoutMs    int `env:"CLI_AGENT_COMMAND_TIMEOUT_MS" envDefault:"10000"`
	MaxCommandTimeoutMs int `env:"CLI_AGENT_MAX_COMMAND_TIMEOUT_MS" envDefault:"600000"`
}

func loadConfig() (*config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// resolveAPIKey falls back to the provider's conventional variable when
// CLI_AGENT_API_KEY is unset.
func (c *config) resolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(strings.ToUpper(c.Provider) + "_API_KEY")
}
