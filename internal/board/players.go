package board

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/hako/durafmt"

	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/identity"
	"github.com/redtalon/talonbot/internal/platform"
	"github.com/redtalon/talonbot/internal/store"
)

// PlayersKey returns the board key for one server's player board.
func PlayersKey(serverNumber int) string {
	return fmt.Sprintf("active_players_server_%d_status", serverNumber)
}

// PortProbe reports whether the game server's port is bound.
type PortProbe func(port int) bool

// PlayerRegistry is the registry surface the players board writes to
// when it sees a linked player online.
type PlayerRegistry interface {
	UserByBohemiaID(bohemiaID string) (*store.User, error)
	ResetLastActive(discordID string) error
}

// Players fuses one server's stats and configuration snapshots into a
// live status board. The two snapshots refresh independently, so a
// render must cope with one being newer than the other.
type Players struct {
	sync         *Synchronizer
	stats        *gamefile.StatsPoller
	config       *gamefile.ConfigPoller
	cache        *identity.Cache
	registry     PlayerRegistry
	probe        PortProbe
	channelID    string
	serverNumber int
	now          func() time.Time
}

func NewPlayers(
	sync *Synchronizer,
	stats *gamefile.StatsPoller,
	config *gamefile.ConfigPoller,
	cache *identity.Cache,
	registry PlayerRegistry,
	probe PortProbe,
	channelID string,
	serverNumber int,
) *Players {
	return &Players{
		sync:         sync,
		stats:        stats,
		config:       config,
		cache:        cache,
		registry:     registry,
		probe:        probe,
		channelID:    channelID,
		serverNumber: serverNumber,
		now:          time.Now,
	}
}

func (p *Players) Sync(ctx context.Context) error {
	return p.sync.Sync(ctx, PlayersKey(p.serverNumber), p.channelID, p.render)
}

func (p *Players) render(ctx context.Context) (platform.Content, error) {
	stats := p.stats.Snapshot()
	cfg := p.config.Snapshot()

	embed := platform.Embed{
		Title:      fmt.Sprintf("Server %d: Online", p.serverNumber),
		Color:      colorGreen,
		Timestamp:  p.now(),
		FooterText: "Last updated",
	}

	// Port liveness decides the headline, not the stats file. A dead
	// server can leave a stale stats file behind.
	if !p.probe(cfg.BindPort) {
		embed.Title = fmt.Sprintf("Server %d: Offline", p.serverNumber)
		embed.Color = colorRed
		return platform.Content{Embeds: []platform.Embed{embed}}, nil
	}

	var players platform.EmbedField
	switch {
	case stats.Players == -1:
		embed.Color = colorRed
		players.Name = "Something went wrong. Contact the server administrator."
	case stats.Players == 0:
		embed.Color = colorYellow
		players.Name = "No Active Players"
	default:
		players.Name = fmt.Sprintf("Operatives ( %d / %d )", stats.Players, cfg.Game.MaxPlayers)
		players.Value = bulletList(stats.ConnectedPlayers)
		p.observe(stats.ConnectedPlayers)
	}
	embed.Fields = append(embed.Fields, players)

	embed.Fields = append(embed.Fields, platform.EmbedField{
		Name: "Server Details",
		Value: fmt.Sprintf(
			"• **Name:** %s\n"+
				"• **Scenario:** %s\n"+
				"• **Password:** %s\n"+
				"• **IP:** %s\n"+
				"• **Port:** %d\n"+
				"• **Uptime:** %s\n",
			cfg.Game.Name,
			humanizeScenario(cfg.Game.ScenarioID),
			cfg.Game.Password,
			cfg.PublicAddress,
			cfg.PublicPort,
			uptimeLabel(stats.UptimeSeconds),
		),
	})

	return platform.Content{Embeds: []platform.Embed{embed}}, nil
}

// bulletList renders connected player names one bullet per line, sorted
// case-insensitively.
func bulletList(connected map[string]string) string {
	names := make([]string, 0, len(connected))
	for _, name := range connected {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	var b strings.Builder
	for _, name := range names {
		b.WriteString("• ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// observe feeds seen players into the identity cache and refreshes the
// last active date of anyone already linked to a registered member.
// Registry failures are logged, never surfaced into the render.
func (p *Players) observe(connected map[string]string) {
	for bohemiaID, name := range connected {
		if err := p.cache.Classify(bohemiaID, name); err != nil {
			log.Printf("[board] players %d: classify %s: %v", p.serverNumber, bohemiaID, err)
			continue
		}
		if !p.cache.IsKnown(bohemiaID) {
			continue
		}
		user, err := p.registry.UserByBohemiaID(bohemiaID)
		if err != nil || user == nil {
			continue
		}
		if err := p.registry.ResetLastActive(user.DiscordID); err != nil {
			log.Printf("[board] players %d: reset last active %s: %v", p.serverNumber, user.DiscordID, err)
		}
	}
}

func uptimeLabel(seconds int64) string {
	if seconds < 0 {
		return "unknown"
	}
	d := time.Duration(seconds) * time.Second
	return durafmt.Parse(d).LimitFirstN(3).String()
}
