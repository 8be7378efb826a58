package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dossierbot/dossier/pkg/dossier/llm"
	"github.com/dossierbot/dossier/pkg/dossier/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCompleter records the last completion request and returns a
// scripted outcome.
type fakeCompleter struct {
	reply string
	err   error

	gotMessages []llm.Message
	gotTimeout  time.Duration
	calls       int
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message, timeout time.Duration) (string, error) {
	f.gotMessages = messages
	f.gotTimeout = timeout
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestStores(t *testing.T) (*memory.ConversationLog, *memory.ProfileStore) {
	t.Helper()
	dir := t.TempDir()
	stm := memory.NewConversationLog(filepath.Join(dir, "stm.json"), 10, testLogger())
	ltm := memory.NewProfileStore(filepath.Join(dir, "ltm.json"), testLogger())
	return stm, ltm
}

func newTestTurnManager(t *testing.T, fc *fakeCompleter) (*TurnManager, *memory.ConversationLog) {
	t.Helper()
	stm, ltm := newTestStores(t)
	builder := NewContextBuilder("base prompt", stm, ltm)
	return NewTurnManager(builder, fc, stm, testLogger()), stm
}

func TestHandleTurnSuccessTruncatesAndRecords(t *testing.T) {
	fc := &fakeCompleter{reply: strings.Repeat("x", MaxReplyLength+500)}
	tm, stm := newTestTurnManager(t, fc)

	reply := tm.HandleTurn(context.Background(), "chan", "user-1", "hello there")

	if utf8.RuneCountInString(reply) != MaxReplyLength {
		t.Errorf("expected reply truncated to %d chars, got %d", MaxReplyLength, utf8.RuneCountInString(reply))
	}
	if fc.gotTimeout != turnTimeout {
		t.Errorf("expected %v timeout for conversational turns, got %v", turnTimeout, fc.gotTimeout)
	}

	history := stm.History("chan")
	if len(history) != 2 {
		t.Fatalf("expected user + assistant turns recorded, got %d", len(history))
	}
	if history[0].Role != llm.RoleUser || history[0].Content != "hello there" {
		t.Errorf("unexpected user turn: %+v", history[0])
	}
	if history[1].Role != llm.RoleAssistant || history[1].Content != reply {
		t.Error("recorded assistant turn must be the truncated reply")
	}
}

func TestHandleTurnAllEndpointsDown(t *testing.T) {
	exhausted := &llm.ExhaustedError{Attempts: []llm.Attempt{
		{URL: "https://primary.example", Err: errors.New("boom")},
		{URL: "https://backup.example", Err: errors.New("boom")},
	}}
	fc := &fakeCompleter{err: exhausted}
	tm, stm := newTestTurnManager(t, fc)

	reply := tm.HandleTurn(context.Background(), "chan", "user-1", "hello")

	if !strings.Contains(reply, "Critical failure") {
		t.Errorf("expected critical-failure reply, got %q", reply)
	}
	if !strings.Contains(reply, "https://primary.example") || !strings.Contains(reply, "https://backup.example") {
		t.Errorf("critical reply must list the failed endpoints, got %q", reply)
	}
	if utf8.RuneCountInString(reply) > MaxReplyLength {
		t.Errorf("critical reply exceeds %d chars", MaxReplyLength)
	}

	history := stm.History("chan")
	if len(history) != 1 {
		t.Fatalf("total outage must not record an assistant turn; history: %+v", history)
	}
	if history[0].Role != llm.RoleUser {
		t.Errorf("expected only the user turn, got role %q", history[0].Role)
	}
}

func TestHandleTurnUnexpectedErrorUsesFallback(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("something odd")}
	tm, stm := newTestTurnManager(t, fc)

	reply := tm.HandleTurn(context.Background(), "chan", "user-1", "hello")

	found := false
	for _, candidate := range fallbackReplies {
		if reply == candidate {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q is not one of the fixed fallbacks", reply)
	}

	history := stm.History("chan")
	if len(history) != 2 {
		t.Fatalf("fallback path must record both turns, got %d", len(history))
	}
	if history[1].Role != llm.RoleAssistant || history[1].Content != reply {
		t.Errorf("recorded assistant turn must be the fallback, got %+v", history[1])
	}
}
