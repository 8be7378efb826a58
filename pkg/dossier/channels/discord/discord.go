// Package discord implements the Discord channel using discordgo.
//
// The bot listens for guild and DM messages, forwards eligible ones to
// the assistant (mentions of the bot and replies to its own messages),
// and renders profile dossiers as native embeds. Reconnection is handled
// by discordgo's gateway.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/dossierbot/dossier/pkg/dossier/channels"
)

// maxMessageLength is Discord's hard per-message character limit.
const maxMessageLength = 2000

// Config holds Discord channel configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// AllowedGuilds restricts which guild IDs the bot responds in.
	// Empty means all guilds.
	AllowedGuilds []string `yaml:"allowed_guilds"`

	// SendTyping sends "typing..." indicators while processing.
	SendTyping bool `yaml:"send_typing"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{SendTyping: true}
}

// Discord implements channels.Channel, channels.TypingChannel, and
// channels.HistoryChannel.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	messages  chan *channels.IncomingMessage
	connected atomic.Bool
}

// New creates a new Discord channel instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the gateway connection and the message stream.
func (d *Discord) Disconnect() error {
	if d.session != nil {
		d.session.Close()
	}
	if d.connected.CompareAndSwap(true, false) {
		close(d.messages)
	}
	d.logger.Info("disconnected")
	return nil
}

// Send sends a text message, optionally with an embed, to the chat.
// Content beyond Discord's 2000-character limit is truncated.
func (d *Discord) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if d.session == nil || !d.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	msgSend := &discordgo.MessageSend{Content: truncateRunes(message.Content, maxMessageLength)}
	if message.ReplyTo != "" {
		msgSend.Reference = &discordgo.MessageReference{MessageID: message.ReplyTo, ChannelID: to}
	}
	if message.Embed != nil {
		msgSend.Embeds = []*discordgo.MessageEmbed{buildEmbed(message.Embed)}
	}

	_, err := d.session.ChannelMessageSendComplex(to, msgSend)
	return err
}

// Receive returns the incoming message stream.
func (d *Discord) Receive() <-chan *channels.IncomingMessage {
	return d.messages
}

// IsConnected reports whether the gateway is connected.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// SendTyping shows the typing indicator in the chat, when enabled.
func (d *Discord) SendTyping(ctx context.Context, to string) error {
	if d.session == nil || !d.cfg.SendTyping {
		return nil
	}
	return d.session.ChannelTyping(to)
}

// History fetches up to limit recent messages from the chat, newest
// first, paging through Discord's 100-message API window.
func (d *Discord) History(ctx context.Context, chatID string, limit int) ([]*channels.IncomingMessage, error) {
	if d.session == nil {
		return nil, channels.ErrChannelDisconnected
	}

	botID := d.session.State.User.ID
	var out []*channels.IncomingMessage
	beforeID := ""

	for len(out) < limit {
		batch := limit - len(out)
		if batch > 100 {
			batch = 100
		}
		msgs, err := d.session.ChannelMessages(chatID, batch, beforeID, "", "")
		if err != nil {
			return nil, fmt.Errorf("discord: fetching history: %w", err)
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			out = append(out, &channels.IncomingMessage{
				ID:       m.ID,
				Channel:  "discord",
				From:     m.Author.ID,
				FromName: authorName(m.Author, nil),
				FromBot:  m.Author.Bot || m.Author.ID == botID,
				ChatID:   chatID,
				Content:  m.Content,
			})
		}
		beforeID = msgs[len(msgs)-1].ID
	}

	return out, nil
}

// onMessageCreate forwards incoming messages to the assistant.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	if len(d.cfg.AllowedGuilds) > 0 && m.GuildID != "" && !contains(d.cfg.AllowedGuilds, m.GuildID) {
		return
	}

	botID := s.State.User.ID

	mentionsBot := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			mentionsBot = true
			break
		}
	}

	isReplyToBot := m.ReferencedMessage != nil &&
		m.ReferencedMessage.Author != nil &&
		m.ReferencedMessage.Author.ID == botID

	replyTo := ""
	if m.ReferencedMessage != nil {
		replyTo = m.ReferencedMessage.ID
	}

	admin := false
	if m.GuildID != "" {
		if perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID); err == nil {
			admin = perms&discordgo.PermissionAdministrator != 0
		}
	}

	incoming := &channels.IncomingMessage{
		ID:           m.ID,
		Channel:      "discord",
		From:         m.Author.ID,
		FromName:     authorName(m.Author, m.Member),
		FromBot:      m.Author.Bot,
		FromAdmin:    admin,
		ChatID:       m.ChannelID,
		Content:      stripMention(m.Content, botID),
		Timestamp:    m.Timestamp,
		ReplyTo:      replyTo,
		MentionsBot:  mentionsBot,
		IsReplyToBot: isReplyToBot,
	}

	select {
	case d.messages <- incoming:
	default:
		d.logger.Warn("message buffer full, dropping message", "msg_id", m.ID)
	}
}

// ---------- Helpers ----------

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// stripMention removes mentions of the given user from the text.
func stripMention(content, userID string) string {
	cleaned := mentionPattern.ReplaceAllStringFunc(content, func(match string) string {
		if strings.Contains(match, userID) {
			return ""
		}
		return match
	})
	return strings.TrimSpace(cleaned)
}

func authorName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func buildEmbed(e *channels.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       0x8b0000,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  f.Name,
			Value: f.Value,
		})
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if e.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	return embed
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// Compile-time interface verification.
var (
	_ channels.Channel        = (*Discord)(nil)
	_ channels.TypingChannel  = (*Discord)(nil)
	_ channels.HistoryChannel = (*Discord)(nil)
)
