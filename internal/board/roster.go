package board

import (
	"context"
	"strings"
	"time"

	"github.com/redtalon/talonbot/internal/platform"
	"github.com/redtalon/talonbot/internal/store"
)

// RosterKey identifies the team roster board in the message store.
const RosterKey = "teams_members_status"

// RefreshRosterID is the custom id carried by the roster refresh button.
const RefreshRosterID = "refresh_teams_members_status_message"

// columnPad widens embed columns with braille blanks so the inline
// fields keep their width regardless of content.
const columnPad = "⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀"

var teamColors = map[string]int{
	store.TeamChalk:        colorGold,
	store.TeamRedSection:   colorCrimson,
	store.TeamGreySection:  colorLightGrey,
	store.TeamBlackSection: colorNearBlack,
}

// RosterSource is the registry read the roster board depends on.
type RosterSource interface {
	Roster() ([]store.RosterEntry, error)
}

// Roster projects the member roster, grouped by team, into one board
// message. Hidden teams are left out of the output entirely.
type Roster struct {
	sync      *Synchronizer
	source    RosterSource
	channelID string
	now       func() time.Time
}

func NewRoster(sync *Synchronizer, source RosterSource, channelID string) *Roster {
	return &Roster{sync: sync, source: source, channelID: channelID, now: time.Now}
}

// Sync renders the roster and pushes it to the board message.
func (r *Roster) Sync(ctx context.Context) error {
	return r.sync.Sync(ctx, RosterKey, r.channelID, r.render)
}

func (r *Roster) render(ctx context.Context) (platform.Content, error) {
	entries, err := r.source.Roster()
	if err != nil {
		return platform.Content{}, err
	}
	return platform.Content{
		Embeds: r.buildEmbeds(entries),
		Buttons: []platform.Button{{
			Emoji:    "🔄",
			CustomID: RefreshRosterID,
			Style:    platform.ButtonSecondary,
		}},
	}, nil
}

// buildEmbeds groups active members into one embed per visible team in
// the fixed team order. Entries keep their registry order, which sorts
// by last active date ascending.
func (r *Roster) buildEmbeds(entries []store.RosterEntry) []platform.Embed {
	now := r.now()
	buckets := make(map[string][]store.RosterEntry)
	for _, e := range entries {
		if e.Status != store.StatusActive || !store.ValidTeam(e.Team) {
			continue
		}
		buckets[e.Team] = append(buckets[e.Team], e)
	}

	var embeds []platform.Embed
	for _, team := range store.Teams {
		if store.HiddenTeams[team] {
			continue
		}
		members := buckets[team]

		var names, seen strings.Builder
		for _, m := range members {
			names.WriteString(truncateName(m.DisplayName))
			names.WriteByte('\n')
			seen.WriteString(elapsedLabel(m.LastActive, now))
			seen.WriteByte('\n')
		}
		nameCol, seenCol := names.String(), seen.String()
		if len(members) == 0 {
			nameCol, seenCol = "No members", "N/A"
		}

		color, ok := teamColors[team]
		if !ok {
			color = colorNearWhite
		}
		embeds = append(embeds, platform.Embed{
			Title:      team,
			Color:      color,
			Timestamp:  now,
			FooterText: "Last updated",
			Fields: []platform.EmbedField{
				{Name: "Name", Value: nameCol + columnPad, Inline: true},
				{Name: "Last Seen", Value: seenCol + columnPad, Inline: true},
			},
		})
	}
	return embeds
}
