// Package llm implements the completion client for OpenAI-compatible
// chat APIs with ordered endpoint failover. Each configured endpoint is
// tried at most once per completion; the first HTTP 200 wins.
package llm

// Conversation roles in the OpenAI chat format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation. It is both the wire shape sent
// to completion endpoints and the unit persisted in short-term memory.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
