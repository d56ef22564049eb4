package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// threadArchiveMinutes is one day, the longest auto-archive window a
// thread supports without boosts.
const threadArchiveMinutes = 1440

// createOperation opens a private thread for an operation and posts a
// public join/abandon message pointing at it.
func (b *Bot) createOperation(i *discordgo.InteractionCreate, name string) {
	channelID := b.cfg.Channels.Operations
	if channelID == "" {
		channelID = i.ChannelID
	}

	thread, err := b.session.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	})
	if err != nil {
		b.respond(i, fmt.Sprintf("Failed to create the operation thread: %v", err))
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "New Operation",
			Description: fmt.Sprintf("**%s**\nClick the button below to join the operation!", name),
			Color:       colorBlue,
			Timestamp:   now,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Join",
					Style:    discordgo.SuccessButton,
					CustomID: "join_operation:" + thread.ID,
				},
				discordgo.Button{
					Label:    "Abandon",
					Style:    discordgo.DangerButton,
					CustomID: "leave_operation:" + thread.ID,
				},
			}},
		},
	})
	if err != nil {
		b.respond(i, fmt.Sprintf("Failed to post the join message: %v", err))
		return
	}

	b.logToChannel(fmt.Sprintf("%s created operation %s", interactionUser(i).Username, name), colorBlue)
	b.respond(i, fmt.Sprintf("Operation created: %s.", name))
}

func (b *Bot) handleOperationButton(i *discordgo.InteractionCreate, customID string) {
	action, threadID, ok := strings.Cut(customID, ":")
	if !ok {
		return
	}
	userID := interactionUser(i).ID

	switch action {
	case "join_operation":
		if err := b.session.ThreadMemberAdd(threadID, userID); err != nil {
			log.Printf("[bot] join operation %s: %v", threadID, err)
			b.respond(i, "Failed to join the operation.")
			return
		}
		b.respond(i, "You have joined the operation.")
	case "leave_operation":
		if err := b.session.ThreadMemberRemove(threadID, userID); err != nil {
			log.Printf("[bot] leave operation %s: %v", threadID, err)
			b.respond(i, "Failed to leave the operation.")
			return
		}
		b.respond(i, "You have abandoned the operation.")
	}
}
