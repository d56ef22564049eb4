package gamefile

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Player-group files map a group name ("Chalk", "Red", ...) to the list of
// Bohemia ids granted that group in game. The files are shared with the
// game server, so a corrupt file is backed up and replaced rather than
// failing the role-change handler.

// AddPlayerToGroup inserts the id into the named group, creating the file
// or the group as needed. Already-present ids are left alone.
func AddPlayerToGroup(path, group, bohemiaID string) error {
	groups := loadGroups(path)
	for _, id := range groups[group] {
		if id == bohemiaID {
			return writeGroups(path, groups)
		}
	}
	groups[group] = append(groups[group], bohemiaID)
	return writeGroups(path, groups)
}

// RemovePlayerFromGroup removes the id from the named group. Missing ids
// are a no-op.
func RemovePlayerFromGroup(path, group, bohemiaID string) error {
	groups := loadGroups(path)
	out := groups[group][:0]
	for _, id := range groups[group] {
		if id != bohemiaID {
			out = append(out, id)
		}
	}
	groups[group] = out
	return writeGroups(path, groups)
}

func loadGroups(path string) map[string][]string {
	groups := map[string][]string{}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return groups
	}
	if err != nil {
		log.Printf("[gamefile] read %s: %v", path, err)
		return groups
	}
	if err := json.Unmarshal(b, &groups); err != nil {
		// keep the broken file around for inspection, start fresh
		backup := fmt.Sprintf("%s.%d.bak", path, time.Now().Unix())
		if rerr := os.Rename(path, backup); rerr != nil {
			log.Printf("[gamefile] backup %s: %v", path, rerr)
		} else {
			log.Printf("[gamefile] %s is not valid JSON, moved to %s", path, backup)
		}
		return map[string][]string{}
	}
	return groups
}

func writeGroups(path string, groups map[string][]string) error {
	b, err := json.MarshalIndent(groups, "", "    ")
	if err != nil {
		return fmt.Errorf("gamefile: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("gamefile: write %s: %w", path, err)
	}
	return nil
}
