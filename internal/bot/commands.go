package bot

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/redtalon/talonbot/internal/board"
	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/store"
)

// commandTimeout bounds the work done inside one interaction.
const commandTimeout = 30 * time.Second

// maxReplyLen is the platform's message length cap.
const maxReplyLen = 2000

// clampReply keeps a reply under the message length cap, cutting at a
// line boundary so no entry is shown half-rendered.
func clampReply(s string) string {
	if len(s) <= maxReplyLen {
		return s
	}
	const marker = "\n… (truncated)"
	cut := maxReplyLen - len(marker)
	if nl := strings.LastIndex(s[:cut], "\n"); nl > 0 {
		cut = nl
	}
	return s[:cut] + marker
}

func (b *Bot) commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check the bot's latency.",
		},
		{
			Name:        "register",
			Description: "Register yourself in the database.",
		},
		{
			Name:        "register_user",
			Description: "Register a user in the database.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to register", Required: true},
			},
		},
		{
			Name:        "delete_user",
			Description: "Delete a user from the database.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to delete", Required: true},
			},
		},
		{
			Name:        "link_player",
			Description: "Link a registered user to an observed in-game player.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The registered user", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "bohemia_id", Description: "The player's Bohemia ID", Required: true, Autocomplete: true},
			},
		},
		{
			Name:        "report_misconduct",
			Description: "Record a misconduct report for a user.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user the report is about", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Report category", Required: true, Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "In-Game", Value: "In-Game"},
					{Name: "Discord", Value: "Discord"},
				}},
				{Type: discordgo.ApplicationCommandOptionString, Name: "type", Description: "Kind of misconduct", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "severity", Description: "Severity from 1 (minor) to 5 (ban-worthy)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "details", Description: "What happened", Required: true},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "victim", Description: "The affected user, if any"},
			},
		},
		{
			Name:        "misconduct_history",
			Description: "Show a user's misconduct reports.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to look up", Required: true},
			},
		},
		{
			Name:        "team_history",
			Description: "Show a user's team assignment history.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to look up", Required: true},
			},
		},
		{
			Name:        "rename_reforger_server",
			Description: "Rename an Arma Reforger server.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "server_number", Description: "The server number (1, 2, ...)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "The new server name", Required: true},
			},
		},
		{
			Name:        "change_reforger_server_scenario",
			Description: "Change an Arma Reforger server scenario.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "server_number", Description: "The server number (1, 2, ...)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "scenario_id", Description: "The new scenario ID (example: {ECC61978EDCC2B5A}Missions/23_Campaign.conf)", Required: true},
			},
		},
		{
			Name:        "restart_gameserver",
			Description: "Restart the game server.",
		},
		{
			Name:        "update_gameserver",
			Description: "Update the game server.",
		},
		{
			Name:        "start_loadout_check",
			Description: "Copy the given user's loadout onto yours for inspection.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to inspect", Required: true},
			},
		},
		{
			Name:        "stop_loadout_check",
			Description: "Restore your own loadout after an inspection.",
		},
		{
			Name:        "delete_user_loadout",
			Description: "Delete the given user's loadout.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to delete the loadout for", Required: true},
			},
		},
		{
			Name:        "show_gm_activity",
			Description: "Show recent GM activity logs.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "instigator", Description: "The user to show logs for", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "log_version", Description: "The log version of logs to show", Required: true, Autocomplete: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "start", Description: "Start time (H, H:M or H:M:S, 24 hour)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "end", Description: "End time (H, H:M or H:M:S, 24 hour)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "type", Description: "Entry type filter", Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Spawn", Value: "spawn"},
					{Name: "Context", Value: "context"},
					{Name: "Attribute", Value: "attribute"},
				}},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "victim", Description: "The user who was affected"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "keyword", Description: "Keyword to filter logs"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "visibility", Description: "Who can see the result", Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Only Me", Value: "Only Me"},
					{Name: "Everyone", Value: "Everyone"},
				}},
			},
		},
		{
			Name:        "create_operation",
			Description: "Create a new operation thread with a join message.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "The name of the operation", Required: true},
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, b.commandDefinitions())
	return err
}

// options flattens an interaction's options into a name-indexed map.
func options(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, o := range data.Options {
		m[o.Name] = o
	}
	return m
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) respond(i *discordgo.InteractionCreate, text string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("[bot] interaction respond: %v", err)
	}
}

func (b *Bot) deferReply(i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func (b *Bot) requireAdmin(i *discordgo.InteractionCreate) bool {
	if b.cfg.IsAdmin(interactionUser(i).ID) {
		return true
	}
	b.respond(i, "You don't have permission to use this command.")
	return false
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.dispatchAutocomplete(i)
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(ctx, i)
	}
}

func (b *Bot) dispatchCommand(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opts := options(data)

	switch data.Name {
	case "ping":
		latency := b.session.HeartbeatLatency().Round(time.Millisecond)
		b.respond(i, fmt.Sprintf("Pong! Latency: %s", latency))

	case "register":
		user := interactionUser(i)
		if err := b.registerMember(user.ID, user.Username, user.GlobalName, user.ID, "User registered himself/herself"); err != nil {
			b.respond(i, fmt.Sprintf("Registration failed: %v", err))
			return
		}
		b.respond(i, fmt.Sprintf("Registered %s in the database.", user.Username))

	case "register_user":
		if !b.requireAdmin(i) {
			return
		}
		target := opts["user"].UserValue(b.session)
		if err := b.registerMember(target.ID, target.Username, target.GlobalName, interactionUser(i).ID, "User was registered by admin"); err != nil {
			b.respond(i, fmt.Sprintf("Registration failed: %v", err))
			return
		}
		b.respond(i, fmt.Sprintf("Registered %s in the database.", target.Username))

	case "delete_user":
		if !b.requireAdmin(i) {
			return
		}
		target := opts["user"].UserValue(b.session)
		if err := b.store.DeleteUser(target.ID); err != nil {
			b.respond(i, fmt.Sprintf("Deletion failed: %v", err))
			return
		}
		if err := b.store.ScrubUserFromLogs(target.ID); err != nil {
			log.Printf("[bot] scrub logs for %s: %v", target.ID, err)
		}
		b.respond(i, fmt.Sprintf("Deleted %s from the database.", target.Username))

	case "link_player":
		if !b.requireAdmin(i) {
			return
		}
		target := opts["user"].UserValue(b.session)
		bohemiaID := opts["bohemia_id"].StringValue()
		if err := b.linkPlayer(target, bohemiaID); err != nil {
			b.respond(i, fmt.Sprintf("Link failed: %v", err))
			return
		}
		b.respond(i, fmt.Sprintf("Linked %s to player %s.", target.Username, bohemiaID))

	case "report_misconduct":
		if !b.requireAdmin(i) {
			return
		}
		b.reportMisconduct(i, opts)

	case "misconduct_history":
		if !b.requireAdmin(i) {
			return
		}
		b.misconductHistory(i, opts["user"].UserValue(b.session))

	case "team_history":
		if !b.requireAdmin(i) {
			return
		}
		b.teamHistory(i, opts["user"].UserValue(b.session))

	case "rename_reforger_server":
		if !b.requireAdmin(i) {
			return
		}
		b.editServerConfig(i, int(opts["server_number"].IntValue()), func(path string) error {
			return gamefile.SetServerName(path, opts["name"].StringValue())
		}, fmt.Sprintf("Name changed to %s", opts["name"].StringValue()))

	case "change_reforger_server_scenario":
		if !b.requireAdmin(i) {
			return
		}
		b.editServerConfig(i, int(opts["server_number"].IntValue()), func(path string) error {
			return gamefile.SetScenarioID(path, opts["scenario_id"].StringValue())
		}, fmt.Sprintf("Scenario changed to %s", opts["scenario_id"].StringValue()))

	case "restart_gameserver":
		if !b.requireAdmin(i) {
			return
		}
		b.runServerCommand(i, b.cfg.RestartCommand, "Game server is restarting...")

	case "update_gameserver":
		if !b.requireAdmin(i) {
			return
		}
		b.runServerCommandDeferred(i, b.cfg.UpdateCommand, "Game server is updated.")

	case "start_loadout_check":
		if !b.requireAdmin(i) {
			return
		}
		b.startLoadoutCheck(i, opts["user"].UserValue(b.session))

	case "stop_loadout_check":
		if !b.requireAdmin(i) {
			return
		}
		b.stopLoadoutCheck(i)

	case "delete_user_loadout":
		if !b.requireAdmin(i) {
			return
		}
		b.deleteUserLoadout(i, opts["user"].UserValue(b.session))

	case "show_gm_activity":
		b.showGMActivity(i, opts)

	case "create_operation":
		if !b.requireAdmin(i) {
			return
		}
		b.createOperation(i, opts["name"].StringValue())

	default:
		b.respond(i, "Unknown command.")
	}
}

func (b *Bot) dispatchAutocomplete(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, o := range data.Options {
		if o.Focused {
			focused = o
			break
		}
	}
	if focused == nil {
		return
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	switch {
	case data.Name == "link_player" && focused.Name == "bohemia_id":
		for _, s := range b.cache.Suggest(focused.StringValue()) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  fmt.Sprintf("%s (%s)", s.Name, s.BohemiaID),
				Value: s.BohemiaID,
			})
		}
	case data.Name == "show_gm_activity" && focused.Name == "log_version":
		choices = b.logVersionChoices(focused.StringValue())
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Printf("[bot] autocomplete respond: %v", err)
	}
}

func (b *Bot) dispatchComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	user := interactionUser(i)

	b.logToChannel(fmt.Sprintf("User %s used button %s in channel %s", user.Username, customID, i.ChannelID), colorBlue)

	switch customID {
	case board.RefreshRosterID:
		if err := b.deferReply(i, true); err != nil {
			log.Printf("[bot] defer: %v", err)
		}
		if err := b.roster.Sync(ctx); err != nil {
			log.Printf("[bot] roster refresh: %v", err)
		}
		return
	case board.RefreshUtilizationID:
		if err := b.deferReply(i, true); err != nil {
			log.Printf("[bot] defer: %v", err)
		}
		if err := b.util.Sync(ctx); err != nil {
			log.Printf("[bot] utilization refresh: %v", err)
		}
		return
	}

	if strings.HasPrefix(customID, "join_operation:") || strings.HasPrefix(customID, "leave_operation:") {
		b.handleOperationButton(i, customID)
		return
	}

	if srv := b.serverByModsChannel(i.ChannelID); srv != nil {
		b.handleCarouselButton(ctx, i, srv, customID)
	}
}

func (b *Bot) handleCarouselButton(ctx context.Context, i *discordgo.InteractionCreate, srv *server, customID string) {
	if !b.cfg.IsAdmin(interactionUser(i).ID) {
		b.respond(i, "You don't have permission to use this command.")
		return
	}
	if err := b.deferReply(i, true); err != nil {
		log.Printf("[bot] defer: %v", err)
	}

	parts := strings.Split(customID, ":")
	action, args := parts[0], parts[1:]

	var err error
	switch action {
	case board.ActionAddMod:
		if len(args) != 3 {
			return
		}
		// the picker message served its purpose
		if derr := b.session.ChannelMessageDelete(i.ChannelID, i.Message.ID); derr != nil {
			log.Printf("[bot] delete search message: %v", derr)
		}
		err = srv.carousel.AddMod(ctx, args[0], args[1], args[2])
	case board.ActionUpdateMod:
		if len(args) != 2 {
			return
		}
		err = srv.carousel.UpdateMod(ctx, args[0], args[1])
	case board.ActionCheckMod:
		if len(args) != 1 {
			return
		}
		err = srv.carousel.Refresh(ctx, args[0])
	case board.ActionRemoveMod:
		if len(args) != 1 {
			return
		}
		err = srv.carousel.RemoveMod(ctx, args[0])
	default:
		return
	}
	if err != nil {
		log.Printf("[bot] carousel %s: %v", action, err)
	}
}

// registerMember creates or reuses a registry row and records the event
// in the team log.
func (b *Bot) registerMember(discordID, username, displayName, instigatorID, details string) error {
	if displayName == "" {
		displayName = username
	}
	if err := b.store.CreateUser(discordID, username, displayName); err != nil {
		return err
	}
	return b.store.CreateTeamLog(instigatorID, discordID, store.TeamUnassigned, details)
}

func (b *Bot) linkPlayer(target *discordgo.User, bohemiaID string) error {
	if err := b.store.LinkBohemiaID(target.ID, bohemiaID); err != nil {
		return err
	}
	name := target.GlobalName
	if name == "" {
		name = target.Username
	}
	b.cache.Link(bohemiaID, name)
	return nil
}

func (b *Bot) reportMisconduct(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	target := opts["user"].UserValue(b.session)
	victimID := ""
	if v, ok := opts["victim"]; ok {
		victimID = v.UserValue(b.session).ID
	}
	err := b.store.CreateMisconductLog(
		interactionUser(i).ID,
		target.ID,
		victimID,
		opts["category"].StringValue(),
		opts["type"].StringValue(),
		opts["details"].StringValue(),
		int(opts["severity"].IntValue()),
	)
	if err != nil {
		b.respond(i, fmt.Sprintf("Failed to record the report: %v", err))
		return
	}
	b.respond(i, fmt.Sprintf("Misconduct report recorded for %s.", target.Username))
}

func (b *Bot) misconductHistory(i *discordgo.InteractionCreate, target *discordgo.User) {
	logs, err := b.store.MisconductLogsByTarget(target.ID)
	if err != nil {
		b.respond(i, fmt.Sprintf("Lookup failed: %v", err))
		return
	}
	if len(logs) == 0 {
		b.respond(i, fmt.Sprintf("No misconduct reports for %s.", target.Username))
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Misconduct reports for %s:\n", target.Username)
	for _, l := range logs {
		fmt.Fprintf(&sb, "• [%s] %s/%s severity %d: %s\n", l.Timestamp.Format("2006-01-02"), l.Category, l.Type, l.Severity, l.Details)
	}
	b.respond(i, clampReply(sb.String()))
}

func (b *Bot) teamHistory(i *discordgo.InteractionCreate, target *discordgo.User) {
	logs, err := b.store.TeamLogsByTarget(target.ID)
	if err != nil {
		b.respond(i, fmt.Sprintf("Lookup failed: %v", err))
		return
	}
	if len(logs) == 0 {
		b.respond(i, fmt.Sprintf("No team history for %s.", target.Username))
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Team history for %s:\n", target.Username)
	for _, l := range logs {
		fmt.Fprintf(&sb, "• [%s] %s: %s\n", l.Timestamp.Format("2006-01-02"), l.Team, l.Details)
	}
	b.respond(i, clampReply(sb.String()))
}

func (b *Bot) editServerConfig(i *discordgo.InteractionCreate, serverNumber int, edit func(path string) error, done string) {
	srv := b.serverByNumber(serverNumber)
	if srv == nil {
		b.respond(i, fmt.Sprintf("Unknown server number %d.", serverNumber))
		return
	}
	if err := edit(srv.conf.ConfigPath); err != nil {
		b.respond(i, fmt.Sprintf("Failed to edit the server configuration: %v", err))
		return
	}
	srv.config.Reload()
	b.respond(i, fmt.Sprintf("Server %d: %s.", serverNumber, done))
}

// runServerCommand fires the command and replies immediately. The
// process must outlive the interaction (it may restart this host's
// game server), so it is not tied to the handler's context.
func (b *Bot) runServerCommand(i *discordgo.InteractionCreate, argv []string, done string) {
	if len(argv) == 0 {
		b.respond(i, "No command configured.")
		return
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		b.respond(i, fmt.Sprintf("Failed to start: %v", err))
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[bot] %s: %v", argv[0], err)
		}
	}()
	b.respond(i, done)
}

// runServerCommandDeferred defers the reply and waits for the command
// to finish. Updates can take minutes, far past the interaction
// timeout, hence the deferred response and the wide deadline.
func (b *Bot) runServerCommandDeferred(i *discordgo.InteractionCreate, argv []string, done string) {
	if len(argv) == 0 {
		b.respond(i, "No command configured.")
		return
	}
	if err := b.deferReply(i, true); err != nil {
		log.Printf("[bot] defer: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	content := done
	if err != nil {
		content = fmt.Sprintf("Failed: %v\n%s", err, out)
	}
	_, err = b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Printf("[bot] followup: %v", err)
	}
}
