package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/dossierbot/dossier/pkg/dossier/channels"
	"github.com/dossierbot/dossier/pkg/dossier/config"
	"github.com/dossierbot/dossier/pkg/dossier/llm"
	"github.com/dossierbot/dossier/pkg/dossier/memory"
)

// Assistant wires the channels, memory stores, and completion client
// together. Message flow: receive → bot filter → command check →
// eligibility check (mention or reply-to-bot) → turn → reply.
type Assistant struct {
	cfg        *config.Config
	channelMgr *channels.Manager
	stm        *memory.ConversationLog
	profiles   *memory.ProfileStore
	turns      *TurnManager
	analyzer   *Analyzer
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an Assistant with all dependencies, loading the persisted
// memory stores and the base system prompt.
func New(cfg *config.Config, logger *slog.Logger) *Assistant {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	stm := memory.NewConversationLog(cfg.Memory.STMPath, cfg.Memory.MaxHistory, logger)
	profiles := memory.NewProfileStore(cfg.Memory.LTMPath, logger)
	client := llm.NewClient(cfg.Endpoints(), cfg.Temperature, logger)
	prompt := config.LoadPrompt(cfg.PromptPath, logger)
	builder := NewContextBuilder(prompt, stm, profiles)

	return &Assistant{
		cfg:        cfg,
		channelMgr: channels.NewManager(logger.With("component", "channels")),
		stm:        stm,
		profiles:   profiles,
		turns:      NewTurnManager(builder, client, stm, logger),
		analyzer:   NewAnalyzer(client, profiles, cfg.Name, logger),
		logger:     logger,
	}
}

// ChannelManager returns the channel manager for registration.
func (a *Assistant) ChannelManager() *channels.Manager {
	return a.channelMgr
}

// Start connects the registered channels and begins processing messages.
func (a *Assistant) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.logger.Info("starting",
		"name", a.cfg.Name,
		"model", a.cfg.API.Model,
		"endpoints", len(a.cfg.Endpoints()),
		"stm_channels", a.stm.Channels(),
	)

	if err := a.channelMgr.Start(a.ctx); err != nil {
		return err
	}

	go a.messageLoop()
	return nil
}

// Stop shuts down the channels and stops processing.
func (a *Assistant) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.channelMgr.Stop()
	a.logger.Info("stopped")
}

// messageLoop drains the aggregated channel stream. Each message is
// processed in its own goroutine; the memory stores serialize access.
func (a *Assistant) messageLoop() {
	for {
		select {
		case msg, ok := <-a.channelMgr.Messages():
			if !ok {
				return
			}
			go a.handleMessage(msg)

		case <-a.ctx.Done():
			return
		}
	}
}

// handleMessage processes one incoming message.
func (a *Assistant) handleMessage(msg *channels.IncomingMessage) {
	if msg.FromBot {
		return
	}

	if cmd, ok := ParseCommand(msg.Content); ok {
		a.handleCommand(msg, cmd)
		return
	}

	if !msg.MentionsBot && !msg.IsReplyToBot {
		return
	}

	start := time.Now()
	a.sendTyping(msg)

	reply := a.turns.HandleTurn(a.ctx, msg.ChatID, msg.From, msg.Content)
	a.sendReply(msg, &channels.OutgoingMessage{Content: reply, ReplyTo: msg.ID})

	a.logger.Info("message processed",
		"channel", msg.Channel,
		"chat_id", msg.ChatID,
		"from", msg.From,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (a *Assistant) sendTyping(msg *channels.IncomingMessage) {
	ch, ok := a.channelMgr.Channel(msg.Channel)
	if !ok {
		return
	}
	if tc, ok := ch.(channels.TypingChannel); ok {
		if err := tc.SendTyping(a.ctx, msg.ChatID); err != nil {
			a.logger.Debug("typing indicator failed", "channel", msg.Channel, "error", err)
		}
	}
}

func (a *Assistant) sendText(msg *channels.IncomingMessage, content string) {
	a.sendReply(msg, &channels.OutgoingMessage{Content: content, ReplyTo: msg.ID})
}

func (a *Assistant) sendEmbed(msg *channels.IncomingMessage, embed *channels.Embed) {
	a.sendReply(msg, &channels.OutgoingMessage{ReplyTo: msg.ID, Embed: embed})
}

func (a *Assistant) sendReply(msg *channels.IncomingMessage, out *channels.OutgoingMessage) {
	if err := a.channelMgr.Send(a.ctx, msg.Channel, msg.ChatID, out); err != nil {
		a.logger.Error("failed to send reply",
			"channel", msg.Channel,
			"chat_id", msg.ChatID,
			"error", err,
		)
	}
}
