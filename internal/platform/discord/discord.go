// Package discord adapts a discordgo session to the platform.Messenger
// surface and maps Discord REST errors onto the platform error taxonomy.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/redtalon/talonbot/internal/platform"
)

// Messenger wraps a live discordgo session. The session is owned by the
// caller; Messenger never opens or closes it.
type Messenger struct {
	s *discordgo.Session
}

func New(s *discordgo.Session) *Messenger {
	return &Messenger{s: s}
}

func (m *Messenger) CheckChannel(ctx context.Context, channelID string) error {
	_, err := m.s.Channel(channelID, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (m *Messenger) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	msg, err := m.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	return &platform.Message{ID: msg.ID, ChannelID: msg.ChannelID}, nil
}

func (m *Messenger) Send(ctx context.Context, channelID string, c platform.Content) (*platform.Message, error) {
	msg, err := m.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    c.Text,
		Embeds:     embeds(c.Embeds),
		Components: components(c.Buttons),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	return &platform.Message{ID: msg.ID, ChannelID: msg.ChannelID}, nil
}

func (m *Messenger) Edit(ctx context.Context, channelID, messageID string, c platform.Content) error {
	es := embeds(c.Embeds)
	cs := components(c.Buttons)
	edit := &discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &c.Text,
		Embeds:     &es,
		Components: &cs,
	}
	_, err := m.s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (m *Messenger) Delete(ctx context.Context, channelID, messageID string) error {
	return mapErr(m.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

// Purge deletes every message in the channel. Bulk deletion is attempted
// first; messages Discord refuses to bulk-delete (older than two weeks)
// are removed one by one.
func (m *Messenger) Purge(ctx context.Context, channelID string) error {
	for {
		msgs, err := m.s.ChannelMessages(channelID, 100, "", "", "", discordgo.WithContext(ctx))
		if err != nil {
			return mapErr(err)
		}
		if len(msgs) == 0 {
			return nil
		}
		ids := make([]string, 0, len(msgs))
		for _, msg := range msgs {
			ids = append(ids, msg.ID)
		}
		if err := m.s.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err != nil {
			for _, id := range ids {
				if derr := m.s.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); derr != nil {
					return mapErr(derr)
				}
			}
		}
	}
}

func embeds(in []platform.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		de := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			de.Fields = append(de.Fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: f.Inline,
			})
		}
		if e.FooterText != "" {
			de.Footer = &discordgo.MessageEmbedFooter{Text: e.FooterText}
		}
		if !e.Timestamp.IsZero() {
			de.Timestamp = e.Timestamp.Format(time.RFC3339)
		}
		out = append(out, de)
	}
	return out
}

func components(buttons []platform.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return []discordgo.MessageComponent{}
	}
	rows := map[int][]discordgo.MessageComponent{}
	var order []int
	for _, b := range buttons {
		db := discordgo.Button{
			Label:    b.Label,
			CustomID: b.CustomID,
			Style:    style(b.Style),
			Disabled: b.Disabled,
		}
		if b.Emoji != "" {
			db.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}
		if _, ok := rows[b.Row]; !ok {
			order = append(order, b.Row)
		}
		rows[b.Row] = append(rows[b.Row], db)
	}
	out := make([]discordgo.MessageComponent, 0, len(order))
	for _, r := range order {
		out = append(out, discordgo.ActionsRow{Components: rows[r]})
	}
	return out
}

func style(s platform.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case platform.ButtonSecondary:
		return discordgo.SecondaryButton
	case platform.ButtonSuccess:
		return discordgo.SuccessButton
	case platform.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return err
	}
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage:
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %v", platform.ErrForbidden, err)
		}
	}
	if rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", platform.ErrForbidden, err)
		}
	}
	return err
}
