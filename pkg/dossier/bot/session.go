package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dossierbot/dossier/pkg/dossier/llm"
	"github.com/dossierbot/dossier/pkg/dossier/memory"
)

// MaxReplyLength is the hard output limit for a single reply.
const MaxReplyLength = 2000

// turnTimeout bounds each endpoint attempt for conversational turns.
const turnTimeout = 20 * time.Second

// Completer abstracts the failover completion client.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, timeout time.Duration) (string, error)
}

// fallbackReplies are sent when a turn fails for any reason other than
// total endpoint exhaustion. Unlike the critical-failure reply, a
// fallback is recorded in short-term memory as the assistant's turn.
var fallbackReplies = []string{
	"⚠️ Something went wrong... try that again",
	"⚠️ Temporary glitch! Let's try again later",
	"⚠️ The servers are briefly unavailable... give it a couple of minutes",
}

const criticalReplyTemplate = `⚠️ **Critical failure!**

All of my completion servers are unreachable right now.
Try again in 5-10 minutes while I:
- restore the connections
- double-check my configuration
- get in touch with the providers

Technical details for the admins:
` + "`%s`"

// TurnManager runs one conversational turn end to end:
// record the user's turn, assemble the context, complete across the
// endpoint chain, and persist the outcome.
type TurnManager struct {
	builder   *ContextBuilder
	completer Completer
	log       *memory.ConversationLog
	logger    *slog.Logger
}

// NewTurnManager creates a turn manager over the given collaborators.
func NewTurnManager(builder *ContextBuilder, completer Completer, log *memory.ConversationLog, logger *slog.Logger) *TurnManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnManager{
		builder:   builder,
		completer: completer,
		log:       log,
		logger:    logger.With("component", "turns"),
	}
}

// HandleTurn processes one eligible user message and returns the text to
// send back. The user's turn is recorded before completion is attempted,
// so a failed turn still leaves it in memory. The returned text is
// always bounded to MaxReplyLength.
//
// Failure asymmetry: when every endpoint is down the critical-failure
// reply is NOT recorded as an assistant turn (a total outage should not
// pollute the conversation), while the fallback reply for any other
// failure IS recorded.
func (t *TurnManager) HandleTurn(ctx context.Context, channelID, userID, text string) string {
	logger := t.logger.With(
		"turn_id", uuid.NewString(),
		"channel_id", channelID,
		"user_id", userID,
	)
	start := time.Now()

	t.log.Append(channelID, llm.RoleUser, text)

	messages := t.builder.Build(channelID, userID, text)

	reply, err := t.completer.Complete(ctx, messages, turnTimeout)
	if err == nil {
		reply = truncateRunes(reply, MaxReplyLength)
		t.log.Append(channelID, llm.RoleAssistant, reply)
		logger.Info("turn completed",
			"context_messages", len(messages),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return reply
	}

	var exhausted *llm.ExhaustedError
	if errors.As(err, &exhausted) {
		logger.Error("all endpoints exhausted", "failed_urls", exhausted.FailedURLs())
		detail := truncateRunes(err.Error(), 500)
		return truncateRunes(fmt.Sprintf(criticalReplyTemplate, detail), MaxReplyLength)
	}

	fallback := fallbackReplies[rand.Intn(len(fallbackReplies))]
	logger.Error("turn failed, replying with fallback", "error", err)
	t.log.Append(channelID, llm.RoleAssistant, fallback)
	return fallback
}

// truncateRunes bounds s to max characters.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
