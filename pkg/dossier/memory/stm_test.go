package memory

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dossierbot/dossier/pkg/dossier/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.json")
	log := NewConversationLog(path, 2, testLogger()) // window of 4 turns

	for _, content := range []string{"one", "two", "three", "four", "five", "six"} {
		log.Append("chan", llm.RoleUser, content)
	}

	history := log.History("chan")
	if len(history) != 4 {
		t.Fatalf("expected window of 4 turns, got %d", len(history))
	}
	if history[0].Content != "three" {
		t.Errorf("expected oldest surviving turn %q, got %q", "three", history[0].Content)
	}
	if history[3].Content != "six" {
		t.Errorf("expected newest turn %q, got %q", "six", history[3].Content)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.json")

	log := NewConversationLog(path, 10, testLogger())
	log.Append("chan-1", llm.RoleUser, "hello")
	log.Append("chan-1", llm.RoleAssistant, "hi there")
	log.Append("chan-2", llm.RoleUser, "other channel")

	reloaded := NewConversationLog(path, 10, testLogger())
	if reloaded.Channels() != 2 {
		t.Fatalf("expected 2 channels after reload, got %d", reloaded.Channels())
	}

	history := reloaded.History("chan-1")
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != llm.RoleUser || history[0].Content != "hello" {
		t.Errorf("unexpected first turn: %+v", history[0])
	}
	if history[1].Role != llm.RoleAssistant || history[1].Content != "hi there" {
		t.Errorf("unexpected second turn: %+v", history[1])
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := NewConversationLog(path, 10, testLogger())
	if log.Channels() != 0 {
		t.Errorf("expected empty log for corrupt file, got %d channels", log.Channels())
	}

	// The store must remain usable and overwrite the corrupt file.
	log.Append("chan", llm.RoleUser, "fresh start")

	reloaded := NewConversationLog(path, 10, testLogger())
	if got := reloaded.History("chan"); len(got) != 1 || got[0].Content != "fresh start" {
		t.Errorf("expected recovered store to persist, got %+v", got)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.json")
	log := NewConversationLog(path, 10, testLogger())
	log.Append("chan", llm.RoleUser, "original")

	history := log.History("chan")
	history[0].Content = "mutated"

	if got := log.History("chan")[0].Content; got != "original" {
		t.Errorf("History must return a copy; stored content is %q", got)
	}
}
