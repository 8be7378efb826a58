package config

import (
	"log/slog"
	"os"
	"strings"
)

// FallbackPrompt is substituted when the configured prompt file cannot
// be read. The turn pipeline proceeds regardless.
const FallbackPrompt = "You are a helpful chat assistant. Keep your answers short and conversational."

// LoadPrompt reads the base system prompt from path. Read failures are
// logged and yield FallbackPrompt; a missing prompt never blocks startup.
func LoadPrompt(path string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("reading system prompt file, using fallback", "path", path, "error", err)
		return FallbackPrompt
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		logger.Error("system prompt file is empty, using fallback", "path", path)
		return FallbackPrompt
	}
	return prompt
}
