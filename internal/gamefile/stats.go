// Package gamefile reads and mutates the game server's on-disk state: the
// admin-tools stats file, the server configuration, the player-group lists
// and the loadout directory. Pollers keep an in-memory snapshot that is
// replaced wholesale on every file change; readers always get a copy and
// never see a half-updated view.
package gamefile

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
)

// StatsSnapshot mirrors the Server Admin Tools stats JSON. Numeric fields
// use -1 as the "not yet available or malformed" sentinel.
type StatsSnapshot struct {
	RegisteredSystems  int               `json:"registered_systems"`
	RegisteredEntities int               `json:"registered_entities"`
	RegisteredGroups   int               `json:"registered_groups"`
	UptimeSeconds      int64             `json:"uptime_seconds"`
	FPS                float64           `json:"fps"`
	RegisteredTasks    int               `json:"registered_tasks"`
	RegisteredVehicles int               `json:"registered_vehicles"`
	AICharacters       int               `json:"ai_characters"`
	Players            int               `json:"players"`
	Updated            int64             `json:"updated"`
	ConnectedPlayers   map[string]string `json:"connected_players"`
}

func emptyStats() StatsSnapshot {
	return StatsSnapshot{
		RegisteredSystems:  -1,
		RegisteredEntities: -1,
		RegisteredGroups:   -1,
		UptimeSeconds:      -1,
		FPS:                -1,
		RegisteredTasks:    -1,
		RegisteredVehicles: -1,
		AICharacters:       -1,
		Players:            -1,
		Updated:            -1,
		ConnectedPlayers:   map[string]string{},
	}
}

// StatsPoller tracks one server's stats file.
type StatsPoller struct {
	path string

	mu   sync.RWMutex
	snap StatsSnapshot
}

// NewStatsPoller reads the initial file contents; a missing or malformed
// file yields the sentinel snapshot, not an error.
func NewStatsPoller(path string) *StatsPoller {
	p := &StatsPoller{path: path, snap: emptyStats()}
	p.reload()
	return p
}

// Snapshot returns a copy of the current stats.
func (p *StatsPoller) Snapshot() StatsSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := p.snap
	snap.ConnectedPlayers = make(map[string]string, len(p.snap.ConnectedPlayers))
	for k, v := range p.snap.ConnectedPlayers {
		snap.ConnectedPlayers[k] = v
	}
	return snap
}

// Watch reloads the snapshot whenever the file changes, until ctx ends.
func (p *StatsPoller) Watch(ctx context.Context) error {
	return watchFile(ctx, p.path, p.reload)
}

func (p *StatsPoller) reload() {
	snap := emptyStats()

	b, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[gamefile] read %s: %v", p.path, err)
		}
	} else if err := json.Unmarshal(b, &snap); err != nil {
		log.Printf("[gamefile] parse %s: %v", p.path, err)
		snap = emptyStats()
	}
	if snap.ConnectedPlayers == nil {
		snap.ConnectedPlayers = map[string]string{}
	}

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
}
