package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxSummaryLength bounds user-set profile summaries, in characters.
const MaxSummaryLength = 1000

// ErrSummaryTooLong is returned when a summary exceeds MaxSummaryLength.
var ErrSummaryTooLong = errors.New("summary exceeds 1000 characters")

// Trait is a derived characterization of a user, attributed and
// timestamped. Traits are append-only.
type Trait struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Fact is a remembered statement about a user. Facts are modeled and
// rendered for forward compatibility; no current operation writes them.
type Fact struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Profile is one user's long-term memory entry.
type Profile struct {
	Name    string  `json:"name"`
	Summary string  `json:"summary,omitempty"`
	Traits  []Trait `json:"traits"`
	Facts   []Fact  `json:"facts"`
}

// ProfileStore is the long-term memory: durable per-user profiles.
type ProfileStore struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewProfileStore loads persisted profiles from path. Structurally
// invalid entries are dropped with a warning rather than failing the
// whole store.
func NewProfileStore(path string, logger *slog.Logger) *ProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ltm")

	raw := loadMapping[json.RawMessage](path, logger)
	profiles := make(map[string]Profile, len(raw))
	for id, entry := range raw {
		var p Profile
		if err := json.Unmarshal(entry, &p); err != nil {
			logger.Warn("dropping malformed profile entry", "user_id", id, "error", err)
			continue
		}
		profiles[id] = p
	}

	logger.Info("long-term memory loaded", "profiles", len(profiles))
	return &ProfileStore{path: path, logger: logger, profiles: profiles}
}

// Get returns a copy of the user's profile.
func (s *ProfileStore) Get(userID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, false
	}
	return copyProfile(p), true
}

// SetSummary sets the user's profile summary, creating the profile if it
// does not exist. Summaries longer than MaxSummaryLength are rejected
// without mutating the store.
func (s *ProfileStore) SetSummary(userID, name, summary string) error {
	if utf8.RuneCountInString(summary) > MaxSummaryLength {
		return ErrSummaryTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = Profile{Name: name, Traits: []Trait{}, Facts: []Fact{}}
	}
	p.Summary = summary
	s.profiles[userID] = p
	s.save()
	return nil
}

// AddTrait appends a trait to the user's profile unless an existing
// trait already has the same (author, text) pair. Returns whether the
// trait was added; duplicates leave the store untouched.
func (s *ProfileStore) AddTrait(userID, name, text, author string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = Profile{Name: name, Traits: []Trait{}, Facts: []Fact{}}
	}

	for _, t := range p.Traits {
		if t.Author == author && t.Text == text {
			return false
		}
	}

	p.Traits = append(p.Traits, Trait{
		Text:      text,
		Author:    author,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	s.profiles[userID] = p
	s.save()
	return true
}

// Render returns the user's profile as a deterministic text block for
// injection into the system prompt, or "" for unknown users. Order is
// fixed: header, name, summary, traits, facts; empty subsections are
// omitted.
func (s *ProfileStore) Render(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return ""
	}

	name := p.Name
	if name == "" {
		name = "Unknown"
	}

	var b strings.Builder
	b.WriteString("=== [ LONG-TERM MEMORY ] ===\n")
	fmt.Fprintf(&b, "Name: %s", name)

	if p.Summary != "" {
		fmt.Fprintf(&b, "\n\nSummary: %s", p.Summary)
	}

	if len(p.Traits) > 0 {
		b.WriteString("\n\nTraits:")
		for _, t := range p.Traits {
			fmt.Fprintf(&b, "\n- %s (by %s, %s)", t.Text, t.Author, formatDate(t.Timestamp))
		}
	}

	if len(p.Facts) > 0 {
		b.WriteString("\n\nFacts:")
		for _, f := range p.Facts {
			fmt.Fprintf(&b, "\n- %s (recorded %s)", f.Text, formatDate(f.Timestamp))
		}
	}

	return b.String()
}

// save persists the full profile mapping; failures are logged and the
// in-memory state stays authoritative. Callers hold the write lock.
func (s *ProfileStore) save() {
	if err := saveMapping(s.path, s.profiles); err != nil {
		s.logger.Error("saving long-term memory", "error", err)
	}
}

func copyProfile(p Profile) Profile {
	out := p
	out.Traits = make([]Trait, len(p.Traits))
	copy(out.Traits, p.Traits)
	out.Facts = make([]Fact, len(p.Facts))
	copy(out.Facts, p.Facts)
	return out
}

// formatDate renders a stored ISO-8601 timestamp as a short date,
// tolerating timestamps without a zone offset. Unparseable values are
// rendered verbatim.
func formatDate(ts string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return ts
}
