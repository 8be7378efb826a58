package memory

import (
	"log/slog"
	"sync"

	"github.com/dossierbot/dossier/pkg/dossier/llm"
)

// DefaultMaxHistory is the number of user/assistant turn pairs retained
// per channel; the stored window holds up to twice this many turns.
const DefaultMaxHistory = 60

// ConversationLog is the short-term memory: a rolling window of recent
// turns per channel. Every mutation is persisted before Append returns,
// and the store-wide lock is held across the read-modify-write-save
// sequence so overlapping turns on one channel cannot lose updates.
type ConversationLog struct {
	path       string
	maxHistory int
	logger     *slog.Logger

	mu    sync.RWMutex
	turns map[string][]llm.Message
}

// NewConversationLog loads the persisted history from path. A missing or
// corrupt file starts the log empty.
func NewConversationLog(path string, maxHistory int, logger *slog.Logger) *ConversationLog {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "stm")
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	l := &ConversationLog{
		path:       path,
		maxHistory: maxHistory,
		logger:     logger,
	}
	l.turns = loadMapping[[]llm.Message](path, logger)
	logger.Info("short-term memory loaded", "channels", len(l.turns))
	return l
}

// Append records one turn for the channel, evicting the oldest turns
// once the window exceeds twice the configured pair count. Save failures
// are logged; the in-memory window stays authoritative.
func (l *ConversationLog) Append(channelID, role, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := append(l.turns[channelID], llm.Message{Role: role, Content: content})
	if limit := l.maxHistory * 2; len(history) > limit {
		history = history[len(history)-limit:]
	}
	l.turns[channelID] = history

	if err := saveMapping(l.path, l.turns); err != nil {
		l.logger.Error("saving short-term memory", "error", err)
	}
}

// History returns a copy of the channel's recorded turns, oldest first.
func (l *ConversationLog) History(channelID string) []llm.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.turns[channelID]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out
}

// Channels returns the number of channels with recorded history.
func (l *ConversationLog) Channels() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}
