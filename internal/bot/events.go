package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/store"
)

const greenEmoji = "🟩"

const (
	colorBlue = 0x3498DB
	colorRed  = 0xE74C3C
)

func (b *Bot) onMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.GuildID != b.cfg.GuildID || m.User.Bot {
		return
	}

	existing, err := b.store.User(m.User.ID)
	if err != nil {
		log.Printf("[bot] lookup %s: %v", m.User.ID, err)
		return
	}
	if existing != nil {
		if err := b.store.UpdateStatus(m.User.ID, store.StatusActive); err != nil {
			log.Printf("[bot] reactivate %s: %v", m.User.ID, err)
			return
		}
		if err := b.store.CreateTeamLog(m.User.ID, m.User.ID, existing.Team, "User has rejoined the server"); err != nil {
			log.Printf("[bot] team log: %v", err)
		}
	} else {
		name := m.User.GlobalName
		if name == "" {
			name = m.User.Username
		}
		if err := b.store.CreateUser(m.User.ID, m.User.Username, name); err != nil {
			log.Printf("[bot] create user %s: %v", m.User.ID, err)
			return
		}
		if err := b.store.CreateTeamLog(m.User.ID, m.User.ID, store.TeamUnassigned, "User has joined the server"); err != nil {
			log.Printf("[bot] team log: %v", err)
		}
	}

	b.refreshRoster()
}

func (b *Bot) onMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.GuildID != b.cfg.GuildID || m.User.Bot {
		return
	}

	existing, err := b.store.User(m.User.ID)
	if err != nil {
		log.Printf("[bot] lookup %s: %v", m.User.ID, err)
		return
	}
	if existing == nil {
		return
	}
	if err := b.store.UpdateStatus(m.User.ID, store.StatusInactive); err != nil {
		log.Printf("[bot] deactivate %s: %v", m.User.ID, err)
	}
	if err := b.store.UpdateTeam(m.User.ID, store.TeamUnassigned); err != nil {
		log.Printf("[bot] unassign %s: %v", m.User.ID, err)
	}
	if err := b.store.CreateTeamLog(m.User.ID, m.User.ID, store.TeamUnassigned, "User has left the server"); err != nil {
		log.Printf("[bot] team log: %v", err)
	}

	b.refreshRoster()
}

func (b *Bot) onMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.GuildID != b.cfg.GuildID || m.User.Bot || m.BeforeUpdate == nil {
		return
	}

	changed := false
	if m.BeforeUpdate.Pending && !m.Member.Pending {
		b.onScreeningPassed(m.User.ID)
		changed = true
	}

	added, removed := diffRoles(m.BeforeUpdate.Roles, m.Member.Roles)
	for _, roleID := range removed {
		if b.handleTeamRoleRemoved(m.User.ID, roleID) {
			changed = true
		}
	}
	for _, roleID := range added {
		if b.handleTeamRoleAdded(m.User.ID, roleID) {
			changed = true
		}
	}

	if changed {
		b.refreshRoster()
	}
}

// onScreeningPassed promotes a member who cleared Discord's membership
// screening: the green role, and the Green Team if they have no team yet.
func (b *Bot) onScreeningPassed(userID string) {
	if b.cfg.GreenRoleID != "" {
		if err := b.session.GuildMemberRoleAdd(b.cfg.GuildID, userID, b.cfg.GreenRoleID); err != nil {
			log.Printf("[bot] grant green role to %s: %v", userID, err)
		}
	}
	existing, err := b.store.User(userID)
	if err != nil {
		log.Printf("[bot] lookup %s: %v", userID, err)
		return
	}
	if existing == nil || existing.Team != store.TeamUnassigned {
		return
	}
	if err := b.store.UpdateTeam(userID, store.TeamGreen); err != nil {
		log.Printf("[bot] assign green team %s: %v", userID, err)
		return
	}
	if err := b.store.CreateTeamLog(userID, userID, store.TeamGreen, "User has passed membership screening"); err != nil {
		log.Printf("[bot] team log: %v", err)
	}
}

// handleTeamRoleRemoved revokes the role's in-game group and, when the
// stored team still matches the role's team, clears the assignment. The
// group revocation is unconditional: the role is gone either way, and a
// member reassigned in the meantime must not keep the old permissions.
func (b *Bot) handleTeamRoleRemoved(userID, roleID string) bool {
	tr, ok := b.cfg.TeamRoles[roleID]
	if !ok {
		return false
	}
	b.updatePlayerGroups(userID, tr.Group, false)

	if tr.Team == "" {
		return false
	}
	current, err := b.store.Team(userID)
	if err != nil {
		log.Printf("[bot] lookup team %s: %v", userID, err)
		return false
	}
	// a stale role removal must not clobber a newer assignment
	if current != tr.Team {
		return false
	}
	if err := b.store.UpdateTeam(userID, store.TeamUnassigned); err != nil {
		log.Printf("[bot] unassign %s: %v", userID, err)
		return false
	}
	if err := b.store.CreateTeamLog(userID, userID, store.TeamUnassigned, fmt.Sprintf("Role for %s was removed", tr.Team)); err != nil {
		log.Printf("[bot] team log: %v", err)
	}
	return true
}

// handleTeamRoleAdded grants the role's in-game group; the team write
// only happens for roles that carry a team (some roles are group-only).
func (b *Bot) handleTeamRoleAdded(userID, roleID string) bool {
	tr, ok := b.cfg.TeamRoles[roleID]
	if !ok {
		return false
	}
	b.updatePlayerGroups(userID, tr.Group, true)

	if tr.Team == "" {
		return false
	}
	existing, err := b.store.User(userID)
	if err != nil {
		log.Printf("[bot] lookup %s: %v", userID, err)
		return false
	}
	if existing == nil {
		return false
	}
	if err := b.store.UpdateTeam(userID, tr.Team); err != nil {
		log.Printf("[bot] assign %s: %v", userID, err)
		return false
	}
	if err := b.store.CreateTeamLog(userID, userID, tr.Team, fmt.Sprintf("Role for %s was added", tr.Team)); err != nil {
		log.Printf("[bot] team log: %v", err)
	}
	return true
}

// updatePlayerGroups mirrors a team change into every server's player
// groups file. Members without a linked player id are announced in the
// log channel so an admin can link them.
func (b *Bot) updatePlayerGroups(userID, group string, add bool) {
	if group == "" {
		return
	}
	bohemiaID, err := b.store.BohemiaID(userID)
	if err != nil {
		log.Printf("[bot] lookup player id %s: %v", userID, err)
		return
	}
	if bohemiaID == "" {
		b.logToChannel(fmt.Sprintf("Cannot update player groups for <@%s>: no linked Bohemia ID. Use /link_player.", userID), colorRed)
		return
	}
	for _, srv := range b.servers {
		if srv.conf.GroupsPath == "" {
			continue
		}
		var err error
		if add {
			err = gamefile.AddPlayerToGroup(srv.conf.GroupsPath, group, bohemiaID)
		} else {
			err = gamefile.RemovePlayerFromGroup(srv.conf.GroupsPath, group, bohemiaID)
		}
		if err != nil {
			log.Printf("[bot] update groups on server %d: %v", srv.conf.Number, err)
		}
	}
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	srv := b.serverByModsChannel(m.ChannelID)
	if srv == nil || srv.carousel == nil {
		return
	}

	// the channel is for mod cards only; a typed message is a search
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		log.Printf("[bot] delete search query: %v", err)
	}
	query := strings.TrimSpace(m.Content)
	if query == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := srv.carousel.Search(ctx, query); err != nil {
		log.Printf("[bot] mod search %q: %v", query, err)
	}
}

func (b *Bot) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.GuildID != b.cfg.GuildID ||
		r.ChannelID != b.cfg.Channels.Rules ||
		r.MessageID != b.cfg.RulesMessageID ||
		r.Emoji.Name != greenEmoji {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	b.onScreeningPassed(r.UserID)
	b.refreshRoster()
}

func (b *Bot) refreshRoster() {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := b.roster.Sync(ctx); err != nil {
		log.Printf("[bot] roster refresh: %v", err)
	}
}

func diffRoles(before, after []string) (added, removed []string) {
	old := make(map[string]bool, len(before))
	for _, r := range before {
		old[r] = true
	}
	cur := make(map[string]bool, len(after))
	for _, r := range after {
		cur[r] = true
		if !old[r] {
			added = append(added, r)
		}
	}
	for _, r := range before {
		if !cur[r] {
			removed = append(removed, r)
		}
	}
	return added, removed
}
