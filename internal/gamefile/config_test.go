package gamefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `{
    "bindAddress": "0.0.0.0",
    "bindPort": 2001,
    "publicAddress": "203.0.113.7",
    "publicPort": 2001,
    "a2s": {"address": "0.0.0.0", "port": 17777},
    "game": {
        "name": "Red Talon Main",
        "password": "rt",
        "scenarioId": "{ECC61978EDCC2B5A}Missions/23_Campaign.conf",
        "maxPlayers": 64,
        "mods": [
            {"modId": "mod-a", "name": "ACE Core", "version": "1.0.0"},
            {"modId": "mod-b", "name": "RIS Gear", "version": "2.1.0"}
        ]
    }
}`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigPollerSnapshot(t *testing.T) {
	p := NewConfigPoller(writeConfig(t))
	snap := p.Snapshot()

	if snap.BindPort != 2001 || snap.Game.Name != "Red Talon Main" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Game.Mods) != 2 {
		t.Fatalf("mods = %d, want 2", len(snap.Game.Mods))
	}
	if got := snap.SearchableMods["mod-b"]; got.Version != "2.1.0" || got.Name != "RIS Gear" {
		t.Errorf("searchable mod-b = %+v", got)
	}
}

func TestConfigPollerMissingFile(t *testing.T) {
	p := NewConfigPoller(filepath.Join(t.TempDir(), "absent.json"))
	snap := p.Snapshot()

	if snap.BindPort != -1 || snap.Game.MaxPlayers != -1 {
		t.Errorf("missing file should yield sentinels, got %+v", snap)
	}
	if len(snap.SearchableMods) != 0 {
		t.Errorf("searchable mods should be empty")
	}
}

func TestConfigPollerMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewConfigPoller(path)
	if snap := p.Snapshot(); snap.BindPort != -1 {
		t.Errorf("malformed file should yield sentinels, got %+v", snap)
	}
}

func TestModMutations(t *testing.T) {
	path := writeConfig(t)

	if err := AddMod(path, "mod-c", "Night Ops", "0.3.1"); err != nil {
		t.Fatalf("AddMod: %v", err)
	}
	if err := UpdateModVersion(path, "mod-a", "1.1.0"); err != nil {
		t.Fatalf("UpdateModVersion: %v", err)
	}
	if err := RemoveMod(path, "mod-b"); err != nil {
		t.Fatalf("RemoveMod: %v", err)
	}

	p := NewConfigPoller(path)
	snap := p.Snapshot()
	if len(snap.Game.Mods) != 2 {
		t.Fatalf("mods = %+v, want mod-a and mod-c", snap.Game.Mods)
	}
	if snap.Game.Mods[0].ModID != "mod-a" || snap.Game.Mods[0].Version != "1.1.0" {
		t.Errorf("mod-a = %+v", snap.Game.Mods[0])
	}
	if snap.Game.Mods[1].ModID != "mod-c" {
		t.Errorf("mod-c = %+v", snap.Game.Mods[1])
	}

	// fields the bot does not model must survive the rewrite
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["a2s"]; !ok {
		t.Errorf("mutation dropped unmodelled a2s block")
	}
}

func TestSetGameFields(t *testing.T) {
	path := writeConfig(t)

	if err := SetServerName(path, "Red Talon Test"); err != nil {
		t.Fatalf("SetServerName: %v", err)
	}
	if err := SetScenarioID(path, "{X}Missions/GM_Arland.conf"); err != nil {
		t.Fatalf("SetScenarioID: %v", err)
	}

	snap := NewConfigPoller(path).Snapshot()
	if snap.Game.Name != "Red Talon Test" {
		t.Errorf("name = %q", snap.Game.Name)
	}
	if snap.Game.ScenarioID != "{X}Missions/GM_Arland.conf" {
		t.Errorf("scenarioId = %q", snap.Game.ScenarioID)
	}
}
