package bot

import (
	"strings"
	"testing"

	"github.com/dossierbot/dossier/pkg/dossier/llm"
)

func TestBuildMessageOrder(t *testing.T) {
	stm, ltm := newTestStores(t)
	stm.Append("chan", llm.RoleUser, "earlier question")
	stm.Append("chan", llm.RoleAssistant, "earlier answer")
	if err := ltm.SetSummary("user-1", "Alice", "night owl"); err != nil {
		t.Fatal(err)
	}

	builder := NewContextBuilder("base prompt", stm, ltm)
	messages := builder.Build("chan", "user-1", "new question")

	if len(messages) != 4 {
		t.Fatalf("expected [system]+2 history+[user], got %d messages", len(messages))
	}

	system := messages[0]
	if system.Role != llm.RoleSystem {
		t.Fatalf("first message must be system, got %q", system.Role)
	}
	if !strings.HasPrefix(system.Content, "base prompt") {
		t.Errorf("system content must start with the base prompt, got %q", system.Content)
	}
	if !strings.Contains(system.Content, "LONG-TERM MEMORY") || !strings.Contains(system.Content, "night owl") {
		t.Errorf("system content must include the rendered profile block, got %q", system.Content)
	}

	if messages[1].Content != "earlier question" || messages[2].Content != "earlier answer" {
		t.Error("history turns out of order")
	}

	last := messages[len(messages)-1]
	if last.Role != llm.RoleUser || last.Content != "new question" {
		t.Errorf("last message must be the new user turn, got %+v", last)
	}
}

func TestBuildWithoutProfileOmitsMemoryBlock(t *testing.T) {
	stm, ltm := newTestStores(t)
	builder := NewContextBuilder("base prompt", stm, ltm)

	messages := builder.Build("chan", "stranger", "hi")

	if messages[0].Content != "base prompt" {
		t.Errorf("system content for unknown user must be the bare prompt, got %q", messages[0].Content)
	}
	if len(messages) != 2 {
		t.Errorf("expected [system]+[user] for empty history, got %d", len(messages))
	}
}

func TestBuildDoesNotMutateStores(t *testing.T) {
	stm, ltm := newTestStores(t)
	stm.Append("chan", llm.RoleUser, "hello")

	builder := NewContextBuilder("base prompt", stm, ltm)
	builder.Build("chan", "user-1", "new")

	if got := stm.History("chan"); len(got) != 1 {
		t.Errorf("Build must not mutate short-term memory, got %d turns", len(got))
	}
}
