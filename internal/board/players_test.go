package board

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/identity"
	"github.com/redtalon/talonbot/internal/store"
)

type fakePlayerRegistry struct {
	linked map[string]string // bohemia id to discord id
	resets []string
}

func (f *fakePlayerRegistry) UserExistsByBohemiaID(id string) (bool, error) {
	_, ok := f.linked[id]
	return ok, nil
}

func (f *fakePlayerRegistry) UserByBohemiaID(id string) (*store.User, error) {
	discordID, ok := f.linked[id]
	if !ok {
		return nil, nil
	}
	return &store.User{DiscordID: discordID, BohemiaID: id}, nil
}

func (f *fakePlayerRegistry) ResetLastActive(discordID string) error {
	f.resets = append(f.resets, discordID)
	return nil
}

func writeServerFiles(t *testing.T, stats, config string) (*gamefile.StatsPoller, *gamefile.ConfigPoller) {
	t.Helper()
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "stats.json")
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(statsPath, []byte(stats), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	return gamefile.NewStatsPoller(statsPath), gamefile.NewConfigPoller(configPath)
}

const playersConfig = `{
  "bindPort": 2001,
  "publicAddress": "203.0.113.7",
  "publicPort": 2001,
  "game": {
    "name": "Red Talon Main",
    "password": "hunter2",
    "scenarioId": "{ECC61978EDCC2B5A}Missions/23_Campaign.conf",
    "maxPlayers": 64,
    "mods": []
  }
}`

func newPlayersBoard(t *testing.T, stats string, reg *fakePlayerRegistry, online bool) *Players {
	t.Helper()
	sp, cp := writeServerFiles(t, stats, playersConfig)
	cache := identity.New(reg)
	probe := func(port int) bool { return online }
	p := NewPlayers(nil, sp, cp, cache, reg, probe, "chan", 1)
	p.now = fixedNow
	return p
}

func TestPlayersOffline(t *testing.T) {
	p := newPlayersBoard(t, `{"players": 5}`, &fakePlayerRegistry{}, false)

	content, err := p.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	embed := content.Embeds[0]
	if embed.Title != "Server 1: Offline" || embed.Color != colorRed {
		t.Errorf("embed = %+v", embed)
	}
	if len(embed.Fields) != 0 {
		t.Errorf("offline board has fields: %+v", embed.Fields)
	}
}

func TestPlayersOnlineEmpty(t *testing.T) {
	p := newPlayersBoard(t, `{"players": 0, "uptime_seconds": 3600}`, &fakePlayerRegistry{}, true)

	content, err := p.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	embed := content.Embeds[0]
	if embed.Title != "Server 1: Online" {
		t.Errorf("title = %q", embed.Title)
	}
	if embed.Color != colorYellow {
		t.Errorf("color = %#x, want yellow", embed.Color)
	}
	if embed.Fields[0].Name != "No Active Players" || embed.Fields[0].Value != "" {
		t.Errorf("players field = %+v", embed.Fields[0])
	}
}

func TestPlayersOnlineList(t *testing.T) {
	reg := &fakePlayerRegistry{linked: map[string]string{"b-1": "d-1"}}
	stats := `{
      "players": 3,
      "uptime_seconds": 7260,
      "connected_players": {"b-1": "alice", "b-2": "Bob", "b-3": "CHARLIE"}
    }`
	p := newPlayersBoard(t, stats, reg, true)

	content, err := p.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	embed := content.Embeds[0]
	if embed.Fields[0].Name != "Operatives ( 3 / 64 )" {
		t.Errorf("players field name = %q", embed.Fields[0].Name)
	}
	// sorted case-insensitively
	want := "• alice\n• Bob\n• CHARLIE"
	if embed.Fields[0].Value != want {
		t.Errorf("players list = %q, want %q", embed.Fields[0].Value, want)
	}

	details := embed.Fields[1].Value
	if !strings.Contains(details, "Red Talon Main") || !strings.Contains(details, "Campaign") {
		t.Errorf("details = %q", details)
	}
	if !strings.Contains(details, "2 hours 1 minute") {
		t.Errorf("details uptime = %q", details)
	}

	// the linked player's last active date refreshes on observation
	if len(reg.resets) != 1 || reg.resets[0] != "d-1" {
		t.Errorf("resets = %v, want [d-1]", reg.resets)
	}
}

func TestPlayersStatsError(t *testing.T) {
	p := newPlayersBoard(t, `not json`, &fakePlayerRegistry{}, true)

	content, err := p.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	embed := content.Embeds[0]
	if embed.Color != colorRed {
		t.Errorf("color = %#x, want red for sentinel stats", embed.Color)
	}
	if !strings.Contains(embed.Fields[0].Name, "Something went wrong") {
		t.Errorf("players field = %+v", embed.Fields[0])
	}
}
