// Package bot implements the Dossier orchestrator: it consumes messages
// from the registered channels, maintains conversational memory, and
// relays eligible messages to the completion endpoints.
package bot

import (
	"github.com/dossierbot/dossier/pkg/dossier/llm"
	"github.com/dossierbot/dossier/pkg/dossier/memory"
)

// ContextBuilder assembles the message list for one completion:
// the base system prompt enriched with the author's long-term memory,
// followed by the channel's short-term history, followed by the new user
// turn. Building never mutates either store.
type ContextBuilder struct {
	prompt   string
	log      *memory.ConversationLog
	profiles *memory.ProfileStore
}

// NewContextBuilder creates a builder over the given prompt and stores.
func NewContextBuilder(prompt string, log *memory.ConversationLog, profiles *memory.ProfileStore) *ContextBuilder {
	return &ContextBuilder{prompt: prompt, log: log, profiles: profiles}
}

// Build returns the ordered completion input for the channel and user.
func (b *ContextBuilder) Build(channelID, userID, text string) []llm.Message {
	system := b.prompt
	if block := b.profiles.Render(userID); block != "" {
		system += "\n\n" + block
	}

	history := b.log.History(channelID)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	return messages
}
