// Package channels defines the messaging-platform abstraction. Each
// platform implements the Channel interface; the Manager aggregates
// registered channels into a single incoming message stream.
package channels

import (
	"context"
	"errors"
	"time"
)

// ErrChannelDisconnected is returned when sending through a channel that
// is not connected.
var ErrChannelDisconnected = errors.New("channel is not connected")

// Channel is the interface every messaging platform must implement.
type Channel interface {
	// Name returns the channel identifier (e.g. "discord").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send sends a message to the given chat.
	Send(ctx context.Context, to string, message *OutgoingMessage) error

	// Receive returns a stream of incoming messages.
	Receive() <-chan *IncomingMessage

	// IsConnected reports whether the channel is connected.
	IsConnected() bool
}

// TypingChannel extends Channel with a typing indicator.
type TypingChannel interface {
	Channel

	// SendTyping shows a "typing..." indicator in the given chat.
	SendTyping(ctx context.Context, to string) error
}

// HistoryChannel extends Channel with bounded history retrieval, used by
// the profile analyzer to sample recent chat messages.
type HistoryChannel interface {
	Channel

	// History returns up to limit recent messages from the chat,
	// newest first.
	History(ctx context.Context, chatID string, limit int) ([]*IncomingMessage, error)
}

// IncomingMessage is a message received from any channel.
type IncomingMessage struct {
	// ID is the platform message identifier.
	ID string

	// Channel identifies the source channel (e.g. "discord").
	Channel string

	// From is the author's platform identifier.
	From string

	// FromName is the author's display name.
	FromName string

	// FromBot indicates the author is a bot account.
	FromBot bool

	// FromAdmin indicates the author holds admin rights in the chat.
	FromAdmin bool

	// ChatID is the conversation (channel/DM) identifier.
	ChatID string

	// Content is the message text, with bot mentions already stripped.
	Content string

	// Timestamp is when the message was sent.
	Timestamp time.Time

	// ReplyTo is the ID of the message being replied to, if any.
	ReplyTo string

	// MentionsBot indicates the bot was mentioned in the message.
	MentionsBot bool

	// IsReplyToBot indicates the message replies to one of the bot's own
	// messages.
	IsReplyToBot bool
}

// OutgoingMessage is a message to send through a channel.
type OutgoingMessage struct {
	// Content is the plain text body.
	Content string

	// ReplyTo is the ID of the message to reply to.
	ReplyTo string

	// Embed is an optional rich block rendered natively where the
	// platform supports it.
	Embed *Embed
}

// Embed is a platform-agnostic rich message block.
type Embed struct {
	Title        string
	Description  string
	Fields       []EmbedField
	Footer       string
	ThumbnailURL string
}

// EmbedField is one titled section of an Embed.
type EmbedField struct {
	Name  string
	Value string
}
