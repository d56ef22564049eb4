// Package platform defines the minimal chat-platform surface the status
// boards depend on, together with the error taxonomy the synchronizers
// react to. The concrete Discord implementation lives in platform/discord;
// tests use in-memory fakes.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound marks a missing channel or message. Recoverable: the
	// synchronizer recreates the target and carries on.
	ErrNotFound = errors.New("platform: not found")

	// ErrForbidden marks revoked permissions. Not recoverable without an
	// administrator, so it is never retried.
	ErrForbidden = errors.New("platform: forbidden")
)

// Message identifies a message the bot owns on the platform.
type Message struct {
	ID        string
	ChannelID string
}

// EmbedField is one name/value column of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich formatted block inside a message.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	FooterText  string
	Timestamp   time.Time
}

// ButtonStyle selects the platform's button coloring.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is an interactive control attached to a message. CustomID is
// delivered back verbatim on press. Row groups buttons into rows.
type Button struct {
	Label    string
	Emoji    string
	CustomID string
	Style    ButtonStyle
	Disabled bool
	Row      int
}

// Content is the full payload a board renders into its message.
type Content struct {
	Text    string
	Embeds  []Embed
	Buttons []Button
}

// Messenger is the message CRUD surface the reconciliation engine consumes.
// Implementations map their native errors onto ErrNotFound / ErrForbidden;
// anything else is treated as transient and retried on the next tick.
type Messenger interface {
	// CheckChannel verifies the channel exists and is reachable.
	CheckChannel(ctx context.Context, channelID string) error

	// FetchMessage resolves an existing message by id.
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)

	// Send creates a new message and returns its handle.
	Send(ctx context.Context, channelID string, c Content) (*Message, error)

	// Edit replaces the content of an existing message.
	Edit(ctx context.Context, channelID, messageID string, c Content) error

	// Delete removes a single message.
	Delete(ctx context.Context, channelID, messageID string) error

	// Purge removes every message in the channel.
	Purge(ctx context.Context, channelID string) error
}
