package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// Load reads configuration in layers: defaults, then the YAML file (the
// given path, or an auto-discovered one), then environment overrides.
// A missing config file is not an error; env vars alone can configure
// the bot, matching how it was traditionally deployed.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	return cfg, nil
}

// applyEnv overlays the environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.API.Model = v
	}
	if v := os.Getenv("TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("PROMPT_PATH"); v != "" {
		cfg.PromptPath = v
	}

	for i := 1; i <= MaxBackupEndpoints; i++ {
		url := os.Getenv(fmt.Sprintf("BACKUP_API_URL_%d", i))
		key := os.Getenv(fmt.Sprintf("BACKUP_API_KEY_%d", i))
		if url == "" || key == "" {
			continue
		}
		cfg.Backups = append(cfg.Backups, EndpointConfig{
			BaseURL: strings.TrimRight(url, "/"),
			APIKey:  key,
			Model:   os.Getenv(fmt.Sprintf("BACKUP_API_MODEL_%d", i)),
		})
	}
}

// loadEnvFiles loads .env files from standard locations.
// godotenv.Load does not overwrite variables already set.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// findConfigFile searches for config files in standard locations.
func findConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"dossier.yaml",
		"dossier.yml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// expandEnvVars replaces ${VAR} and $VAR references with their
// environment values, leaving unset references untouched.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}
