package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dossierbot/dossier/pkg/dossier/channels"
	"github.com/dossierbot/dossier/pkg/dossier/memory"
)

// commandPrefixes are the prefixes recognized for profile commands.
var commandPrefixes = []string{"!", "-"}

// defaultAnalyzeLimit is how many messages !analyze samples when no
// limit argument is given.
const defaultAnalyzeLimit = 100

// Command is a parsed prefix command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a prefix command from message content. Returns
// false for ordinary messages.
func ParseCommand(content string) (Command, bool) {
	trimmed := strings.TrimSpace(content)

	var body string
	found := false
	for _, p := range commandPrefixes {
		if strings.HasPrefix(trimmed, p) {
			body = strings.TrimSpace(trimmed[len(p):])
			found = true
			break
		}
	}
	if !found || body == "" {
		return Command{}, false
	}

	name, args, _ := strings.Cut(body, " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}, true
}

var mentionArgPattern = regexp.MustCompile(`^<@!?(\d+)>`)

// parseMentionArg extracts a user ID from a leading <@id> token.
func parseMentionArg(args string) (string, bool) {
	match := mentionArgPattern.FindStringSubmatch(strings.TrimSpace(args))
	if match == nil {
		return "", false
	}
	return match[1], true
}

// handleCommand dispatches the profile command surface.
func (a *Assistant) handleCommand(msg *channels.IncomingMessage, cmd Command) {
	switch cmd.Name {
	case "setprofile":
		a.cmdSetProfile(msg, cmd.Args)
	case "profile":
		a.cmdProfile(msg, cmd.Args)
	case "analyze":
		a.cmdAnalyze(msg, cmd.Args)
	}
}

func (a *Assistant) cmdSetProfile(msg *channels.IncomingMessage, args string) {
	if args == "" {
		a.sendText(msg, "Usage: !setprofile <summary text>")
		return
	}

	if err := a.profiles.SetSummary(msg.From, msg.FromName, args); err != nil {
		a.sendText(msg, fmt.Sprintf("❌ That summary is too long! %d characters max.", memory.MaxSummaryLength))
		return
	}
	a.sendText(msg, fmt.Sprintf("✅ Profile summary saved for %s!", msg.FromName))
}

func (a *Assistant) cmdProfile(msg *channels.IncomingMessage, args string) {
	targetID := msg.From
	targetName := msg.FromName
	if id, ok := parseMentionArg(args); ok {
		targetID = id
		targetName = ""
	}

	profile, found := a.profiles.Get(targetID)
	if targetName == "" {
		targetName = profile.Name
	}
	if targetName == "" {
		targetName = "user " + targetID
	}

	embed := buildProfileEmbed(targetName, profile, found, msg.FromName)
	a.sendEmbed(msg, embed)
}

func (a *Assistant) cmdAnalyze(msg *channels.IncomingMessage, args string) {
	if !msg.FromAdmin {
		a.sendText(msg, "⛔ Only admins can run chat analysis.")
		return
	}

	limit := defaultAnalyzeLimit
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil && n > 0 {
			limit = n
		}
	}

	ch, ok := a.channelMgr.Channel(msg.Channel)
	if !ok {
		return
	}
	hc, ok := ch.(channels.HistoryChannel)
	if !ok {
		a.sendText(msg, "⚠️ Chat analysis is not supported on this channel.")
		return
	}

	a.sendText(msg, fmt.Sprintf("🔍 Starting chat analysis! Checking up to %d messages.", limit))

	history, err := hc.History(a.ctx, msg.ChatID, limit)
	if err != nil {
		a.logger.Error("fetching history for analysis", "chat_id", msg.ChatID, "error", err)
		a.sendText(msg, "⚠️ Could not fetch the chat history. Try again later.")
		return
	}

	sample := make([]SampledMessage, 0, len(history))
	for _, m := range history {
		if m.FromBot || m.Content == "" {
			continue
		}
		sample = append(sample, SampledMessage{
			AuthorID:   m.From,
			AuthorName: m.FromName,
			Content:    m.Content,
		})
	}

	for _, result := range a.analyzer.Analyze(a.ctx, sample) {
		switch {
		case result.Err != nil:
			a.sendText(msg, fmt.Sprintf("⚠️ Analysis failed for %s! Skipping.", result.UserName))
		case result.Duplicate:
			a.sendText(msg, fmt.Sprintf("ℹ️ %s already has that characterization. Skipping.", result.UserName))
		default:
			a.sendText(msg, fmt.Sprintf("🔍 Characterization for %s: *%s*", result.UserName, result.Trait))
		}
	}

	a.sendText(msg, "✅ Analysis complete!")
}

// buildProfileEmbed renders a user's dossier as a rich embed.
func buildProfileEmbed(name string, profile memory.Profile, found bool, requestedBy string) *channels.Embed {
	embed := &channels.Embed{
		Title:  "💀 Dossier on " + name,
		Footer: "Requested by " + requestedBy,
	}

	summary := "*No summary set yet*\nUse `!setprofile <text>` to add one"
	if found && profile.Summary != "" {
		summary = profile.Summary
	}
	embed.Fields = append(embed.Fields, channels.EmbedField{Name: "📝 Summary", Value: summary})

	if len(profile.Traits) > 0 {
		var b strings.Builder
		for i, t := range profile.Traits {
			fmt.Fprintf(&b, "%d. %s (by %s)\n", i+1, t.Text, t.Author)
		}
		embed.Fields = append(embed.Fields, channels.EmbedField{
			Name:  "📌 Traits",
			Value: "```\n" + b.String() + "```",
		})
	}

	if len(profile.Facts) > 0 {
		var b strings.Builder
		for i, f := range profile.Facts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f.Text)
		}
		embed.Fields = append(embed.Fields, channels.EmbedField{
			Name:  "🗃️ Facts",
			Value: "```\n" + b.String() + "```",
		})
	}

	embed.Fields = append(embed.Fields, channels.EmbedField{
		Name:  "📊 Stats",
		Value: fmt.Sprintf("**Traits:** %d\n**Facts:** %d", len(profile.Traits), len(profile.Facts)),
	})

	return embed
}
