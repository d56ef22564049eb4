package gamefile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
)

// Mod is one entry of the server's ordered mod list.
type Mod struct {
	ModID   string `json:"modId"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ModInfo is the derived per-id view used for version comparison.
type ModInfo struct {
	Name    string
	Version string
}

// GameConfig is the "game" object of the server configuration.
type GameConfig struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	ScenarioID string `json:"scenarioId"`
	MaxPlayers int    `json:"maxPlayers"`
	Mods       []Mod  `json:"mods"`
}

// ConfigSnapshot mirrors the server configuration JSON. String fields fall
// back to "" and numeric fields to -1 when the file is missing or broken.
// SearchableMods is derived from Mods on every load, never unmarshalled.
type ConfigSnapshot struct {
	BindAddress   string     `json:"bindAddress"`
	BindPort      int        `json:"bindPort"`
	PublicAddress string     `json:"publicAddress"`
	PublicPort    int        `json:"publicPort"`
	Game          GameConfig `json:"game"`

	SearchableMods map[string]ModInfo `json:"-"`
}

func emptyConfig() ConfigSnapshot {
	return ConfigSnapshot{
		BindPort:       -1,
		PublicPort:     -1,
		Game:           GameConfig{MaxPlayers: -1},
		SearchableMods: map[string]ModInfo{},
	}
}

// ConfigPoller tracks one server's configuration file.
type ConfigPoller struct {
	path string

	mu   sync.RWMutex
	snap ConfigSnapshot
}

func NewConfigPoller(path string) *ConfigPoller {
	p := &ConfigPoller{path: path, snap: emptyConfig()}
	p.Reload()
	return p
}

// Path returns the backing file, for the mutation entry points.
func (p *ConfigPoller) Path() string { return p.path }

// Snapshot returns a copy of the current configuration.
func (p *ConfigPoller) Snapshot() ConfigSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := p.snap
	snap.Game.Mods = append([]Mod(nil), p.snap.Game.Mods...)
	snap.SearchableMods = make(map[string]ModInfo, len(p.snap.SearchableMods))
	for k, v := range p.snap.SearchableMods {
		snap.SearchableMods[k] = v
	}
	return snap
}

// Watch reloads the snapshot whenever the file changes, until ctx ends.
func (p *ConfigPoller) Watch(ctx context.Context) error {
	return watchFile(ctx, p.path, p.Reload)
}

// Reload re-reads the backing file. Exported so mutation entry points can
// refresh the snapshot immediately instead of waiting for the watcher.
func (p *ConfigPoller) Reload() {
	snap := emptyConfig()

	b, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[gamefile] read %s: %v", p.path, err)
		}
	} else if err := json.Unmarshal(b, &snap); err != nil {
		log.Printf("[gamefile] parse %s: %v", p.path, err)
		snap = emptyConfig()
	}

	snap.SearchableMods = make(map[string]ModInfo, len(snap.Game.Mods))
	for _, m := range snap.Game.Mods {
		snap.SearchableMods[m.ModID] = ModInfo{Name: m.Name, Version: m.Version}
	}

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
}

// --- mutation entry points ---
//
// The configuration file is owned by the game server and carries fields
// the bot does not model, so mutations edit the raw document instead of
// round-tripping through ConfigSnapshot.

// AddMod appends a mod to the configured mod list.
func AddMod(path, modID, name, version string) error {
	return editMods(path, func(mods []any) ([]any, error) {
		return append(mods, map[string]any{
			"modId":   modID,
			"name":    name,
			"version": version,
		}), nil
	})
}

// UpdateModVersion rewrites the tracked version of one mod. Unknown ids
// are a no-op.
func UpdateModVersion(path, modID, version string) error {
	return editMods(path, func(mods []any) ([]any, error) {
		for _, m := range mods {
			if entry, ok := m.(map[string]any); ok && entry["modId"] == modID {
				entry["version"] = version
				break
			}
		}
		return mods, nil
	})
}

// RemoveMod drops a mod from the configured mod list. Unknown ids are a
// no-op.
func RemoveMod(path, modID string) error {
	return editMods(path, func(mods []any) ([]any, error) {
		out := make([]any, 0, len(mods))
		for _, m := range mods {
			if entry, ok := m.(map[string]any); ok && entry["modId"] == modID {
				continue
			}
			out = append(out, m)
		}
		return out, nil
	})
}

// SetScenarioID rewrites game.scenarioId.
func SetScenarioID(path, scenarioID string) error {
	return editGameField(path, "scenarioId", scenarioID)
}

// SetServerName rewrites game.name.
func SetServerName(path, name string) error {
	return editGameField(path, "name", name)
}

func editMods(path string, edit func([]any) ([]any, error)) error {
	return editDocument(path, func(doc map[string]any) error {
		game, ok := doc["game"].(map[string]any)
		if !ok {
			return fmt.Errorf("gamefile: %s: missing game object", path)
		}
		mods, ok := game["mods"].([]any)
		if !ok {
			return fmt.Errorf("gamefile: %s: missing mods list", path)
		}
		out, err := edit(mods)
		if err != nil {
			return err
		}
		game["mods"] = out
		return nil
	})
}

func editGameField(path, field string, value any) error {
	return editDocument(path, func(doc map[string]any) error {
		game, ok := doc["game"].(map[string]any)
		if !ok {
			return fmt.Errorf("gamefile: %s: missing game object", path)
		}
		game[field] = value
		return nil
	})
}

func editDocument(path string, edit func(map[string]any) error) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("gamefile: read %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("gamefile: parse %s: %w", path, err)
	}
	if err := edit(doc); err != nil {
		return err
	}
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("gamefile: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("gamefile: write %s: %w", path, err)
	}
	return nil
}
