package memory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetSummaryLengthBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltm.json")
	store := NewProfileStore(path, testLogger())

	// Multibyte runes: the limit is characters, not bytes.
	atLimit := strings.Repeat("я", MaxSummaryLength)
	if err := store.SetSummary("u1", "Alice", atLimit); err != nil {
		t.Fatalf("summary at the limit rejected: %v", err)
	}

	overLimit := strings.Repeat("я", MaxSummaryLength+1)
	if err := store.SetSummary("u1", "Alice", overLimit); !errors.Is(err, ErrSummaryTooLong) {
		t.Fatalf("expected ErrSummaryTooLong, got %v", err)
	}

	// The rejection must not have mutated the store.
	p, ok := store.Get("u1")
	if !ok || p.Summary != atLimit {
		t.Error("rejected summary mutated the stored profile")
	}

	// Accepted summary is persisted verbatim.
	reloaded := NewProfileStore(path, testLogger())
	if p, _ := reloaded.Get("u1"); p.Summary != atLimit {
		t.Error("summary not persisted verbatim")
	}
}

func TestAddTraitDedupByAuthorAndText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltm.json")
	store := NewProfileStore(path, testLogger())

	if !store.AddTrait("u1", "Bob", "talks a lot", "dossier") {
		t.Fatal("first trait append rejected")
	}
	if store.AddTrait("u1", "Bob", "talks a lot", "dossier") {
		t.Error("duplicate (author, text) pair appended twice")
	}
	if !store.AddTrait("u1", "Bob", "talks a lot", "someone-else") {
		t.Error("same text from a different author should be appended")
	}

	p, _ := store.Get("u1")
	if len(p.Traits) != 2 {
		t.Errorf("expected 2 traits, got %d", len(p.Traits))
	}
}

func TestRenderOrderAndOmissions(t *testing.T) {
	// Seed a profile with every field populated, facts included
	// (facts are never written by operations, only loaded).
	doc := `{
  "u1": {
    "name": "Carol",
    "summary": "resident kindness enjoyer",
    "traits": [
      {"text": "patient", "author": "dossier", "timestamp": "2024-03-01T10:00:00Z"}
    ],
    "facts": [
      {"text": "owns a cat", "timestamp": "2024-04-02T10:00:00Z"}
    ]
  },
  "u2": {"name": "Dave", "traits": [], "facts": []}
}`
	path := filepath.Join(t.TempDir(), "ltm.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewProfileStore(path, testLogger())

	block := store.Render("u1")
	wantInOrder := []string{
		"=== [ LONG-TERM MEMORY ] ===",
		"Name: Carol",
		"Summary: resident kindness enjoyer",
		"Traits:",
		"- patient (by dossier, 01.03.2024)",
		"Facts:",
		"- owns a cat (recorded 02.04.2024)",
	}
	pos := 0
	for _, want := range wantInOrder {
		idx := strings.Index(block[pos:], want)
		if idx < 0 {
			t.Fatalf("rendered block missing %q in order; got:\n%s", want, block)
		}
		pos += idx + len(want)
	}

	// Empty subsections are omitted entirely.
	minimal := store.Render("u2")
	for _, absent := range []string{"Summary:", "Traits:", "Facts:"} {
		if strings.Contains(minimal, absent) {
			t.Errorf("minimal profile should omit %q; got:\n%s", absent, minimal)
		}
	}

	if store.Render("nobody") != "" {
		t.Error("unknown user must render to an empty string")
	}
}

func TestMalformedProfileEntryDropped(t *testing.T) {
	doc := `{
  "good": {"name": "Eve", "traits": [], "facts": []},
  "bad": 123
}`
	path := filepath.Join(t.TempDir(), "ltm.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewProfileStore(path, testLogger())
	if _, ok := store.Get("good"); !ok {
		t.Error("valid entry lost alongside the malformed one")
	}
	if _, ok := store.Get("bad"); ok {
		t.Error("malformed entry should be treated as absent")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltm.json")
	store := NewProfileStore(path, testLogger())
	store.AddTrait("u1", "Frank", "quiet", "dossier")

	p, _ := store.Get("u1")
	p.Traits[0].Text = "mutated"

	fresh, _ := store.Get("u1")
	if fresh.Traits[0].Text != "quiet" {
		t.Errorf("Get must return a copy; stored trait is %q", fresh.Traits[0].Text)
	}
}
