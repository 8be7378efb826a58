package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dossierbot/dossier/pkg/dossier/llm"
	"github.com/dossierbot/dossier/pkg/dossier/memory"
)

// analysisTimeout bounds each endpoint attempt for analysis completions.
// Analysis prompts are larger than conversational ones.
const analysisTimeout = 30 * time.Second

const (
	// maxSampleMessages caps how many of an author's messages feed one
	// characterization.
	maxSampleMessages = 20

	// maxSampleLength caps the concatenated sample, in characters.
	maxSampleLength = 2000
)

const analysisSystemPrompt = "You are an experienced psychologist. Your job is to analyze messages and write short, pointed characterizations."

const analysisPromptTemplate = `You are an experienced psychologist. Your job is to analyze messages and write short, pointed characterizations based on the messages provided.

The user's messages:
%s

Characterization:`

// SampledMessage is one historical chat message handed to the analyzer.
// The caller is expected to have filtered out bot authors and empty
// content.
type SampledMessage struct {
	AuthorID   string
	AuthorName string
	Content    string
}

// AnalysisResult reports the analysis outcome for one author.
type AnalysisResult struct {
	UserID    string
	UserName  string
	Trait     string
	Duplicate bool
	Err       error
}

// Analyzer derives trait characterizations from message samples and
// appends them to long-term memory.
type Analyzer struct {
	completer Completer
	profiles  *memory.ProfileStore
	botName   string
	logger    *slog.Logger
}

// NewAnalyzer creates an analyzer that attributes derived traits to
// botName.
func NewAnalyzer(completer Completer, profiles *memory.ProfileStore, botName string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		completer: completer,
		profiles:  profiles,
		botName:   botName,
		logger:    logger.With("component", "analyzer"),
	}
}

// Analyze groups the sample by author, in first-seen order, and derives
// one characterization per author. A failure for one author is reported
// in that author's result and does not stop the others. Duplicate
// characterizations (same author and text as an existing trait) are not
// appended again.
func (a *Analyzer) Analyze(ctx context.Context, sample []SampledMessage) []AnalysisResult {
	type authorSample struct {
		name     string
		messages []string
	}

	var order []string
	byAuthor := make(map[string]*authorSample)
	for _, msg := range sample {
		if msg.Content == "" {
			continue
		}
		as, ok := byAuthor[msg.AuthorID]
		if !ok {
			as = &authorSample{name: msg.AuthorName}
			byAuthor[msg.AuthorID] = as
			order = append(order, msg.AuthorID)
		}
		as.messages = append(as.messages, msg.Content)
	}

	results := make([]AnalysisResult, 0, len(order))
	for _, userID := range order {
		as := byAuthor[userID]

		msgs := as.messages
		if len(msgs) > maxSampleMessages {
			msgs = msgs[:maxSampleMessages]
		}
		text := truncateRunes(strings.Join(msgs, "\n"), maxSampleLength)

		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: analysisSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(analysisPromptTemplate, text)},
		}

		trait, err := a.completer.Complete(ctx, messages, analysisTimeout)
		if err != nil {
			a.logger.Error("analysis failed", "user_id", userID, "error", err)
			results = append(results, AnalysisResult{UserID: userID, UserName: as.name, Err: err})
			continue
		}

		trait = strings.TrimSpace(trait)
		added := a.profiles.AddTrait(userID, as.name, trait, a.botName)
		if added {
			a.logger.Info("trait recorded", "user_id", userID)
		}
		results = append(results, AnalysisResult{
			UserID:    userID,
			UserName:  as.name,
			Trait:     trait,
			Duplicate: !added,
		})
	}

	return results
}
