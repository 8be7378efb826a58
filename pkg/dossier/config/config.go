// Package config loads Dossier configuration from YAML files, .env
// files, and environment variables.
package config

import (
	"errors"

	"github.com/dossierbot/dossier/pkg/dossier/channels/discord"
	"github.com/dossierbot/dossier/pkg/dossier/llm"
)

// MaxBackupEndpoints is the number of BACKUP_API_* env triples consulted.
const MaxBackupEndpoints = 3

// Config holds all bot configuration.
type Config struct {
	// Name is the bot identity, used as the author of derived traits.
	Name string `yaml:"name"`

	// Discord is the Discord channel config.
	Discord discord.Config `yaml:"discord"`

	// API is the primary completion endpoint.
	API EndpointConfig `yaml:"api"`

	// Backups are the ordered backup completion endpoints.
	Backups []EndpointConfig `yaml:"backups"`

	// Temperature is the sampling temperature for all completions.
	Temperature float64 `yaml:"temperature"`

	// PromptPath is the base system prompt file.
	PromptPath string `yaml:"prompt_path"`

	// Memory configures the persistent stores.
	Memory MemoryConfig `yaml:"memory"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// EndpointConfig is one completion API target.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// MemoryConfig configures the persistent memory stores.
type MemoryConfig struct {
	// STMPath is the short-term memory JSON file.
	STMPath string `yaml:"stm_path"`

	// LTMPath is the long-term memory JSON file.
	LTMPath string `yaml:"ltm_path"`

	// MaxHistory is the number of turn pairs retained per channel.
	MaxHistory int `yaml:"max_history"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Name:    "Dossier",
		Discord: discord.DefaultConfig(),
		API: EndpointConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
		},
		Temperature: 1.2,
		PromptPath:  "prompt.txt",
		Memory: MemoryConfig{
			STMPath:    "short_term_memory.json",
			LTMPath:    "long_term_memory.json",
			MaxHistory: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Endpoints returns the ordered completion endpoint list, primary first.
// Backups without their own model inherit the primary's.
func (c *Config) Endpoints() []llm.Endpoint {
	endpoints := []llm.Endpoint{{
		BaseURL: c.API.BaseURL,
		APIKey:  c.API.APIKey,
		Model:   c.API.Model,
	}}
	for _, b := range c.Backups {
		model := b.Model
		if model == "" {
			model = c.API.Model
		}
		endpoints = append(endpoints, llm.Endpoint{
			BaseURL: b.BaseURL,
			APIKey:  b.APIKey,
			Model:   model,
		})
	}
	return endpoints
}

// Validate checks the startup-fatal requirements. Everything else is
// recoverable at runtime.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return errors.New("discord bot token is required (DISCORD_TOKEN)")
	}
	if c.API.APIKey == "" {
		return errors.New("primary API key is required (API_KEY)")
	}
	return nil
}
