package bot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
)

// Loadouts live under the game server's profile directory, bucketed by
// the first two characters of the player id.
func loadoutShard(bohemiaID string) string {
	if len(bohemiaID) < 2 {
		return bohemiaID
	}
	return bohemiaID[:2]
}

func baconLoadoutPath(profileDir, bohemiaID string) string {
	return filepath.Join(profileDir, "BaconLoadoutEditor_Loadouts", "1.4", "US", loadoutShard(bohemiaID), bohemiaID)
}

func persistentLoadoutPath(profileDir, bohemiaID string) string {
	return filepath.Join(profileDir, "GMPersistentLoadouts", "v2", "US", loadoutShard(bohemiaID), bohemiaID)
}

func (b *Bot) loadoutPaths(bohemiaID string) []string {
	return []string{
		baconLoadoutPath(b.cfg.ProfileDir, bohemiaID),
		persistentLoadoutPath(b.cfg.ProfileDir, bohemiaID),
	}
}

// memberBohemiaID resolves a member to their linked player id, replying
// to the interaction when the link is missing.
func (b *Bot) memberBohemiaID(i *discordgo.InteractionCreate, userID, name string) (string, bool) {
	bohemiaID, err := b.store.BohemiaID(userID)
	if err != nil {
		b.respond(i, fmt.Sprintf("Lookup failed: %v", err))
		return "", false
	}
	if bohemiaID == "" {
		b.respond(i, fmt.Sprintf("User %s does not have a Bohemia ID registered.", name))
		return "", false
	}
	return bohemiaID, true
}

func (b *Bot) startLoadoutCheck(i *discordgo.InteractionCreate, target *discordgo.User) {
	instigator := interactionUser(i)
	instigatorID, ok := b.memberBohemiaID(i, instigator.ID, instigator.Username)
	if !ok {
		return
	}
	targetID, ok := b.memberBohemiaID(i, target.ID, target.Username)
	if !ok {
		return
	}

	own := b.loadoutPaths(instigatorID)
	theirs := b.loadoutPaths(targetID)
	for n, path := range own {
		if err := backupLoadout(path); err != nil {
			b.respond(i, fmt.Sprintf("Failed to back up your loadout: %v", err))
			return
		}
		if err := copyLoadout(theirs[n], path); err != nil {
			b.respond(i, fmt.Sprintf("Failed to copy the loadout: %v", err))
			return
		}
	}
	b.respond(i, fmt.Sprintf("Loadouts copied from %s to %s.", target.Username, instigator.Username))
}

func (b *Bot) stopLoadoutCheck(i *discordgo.InteractionCreate) {
	instigator := interactionUser(i)
	instigatorID, ok := b.memberBohemiaID(i, instigator.ID, instigator.Username)
	if !ok {
		return
	}
	for _, path := range b.loadoutPaths(instigatorID) {
		if err := restoreLoadout(path); err != nil {
			b.respond(i, fmt.Sprintf("Failed to restore your loadout: %v", err))
			return
		}
	}
	b.respond(i, "Loadouts restored to their original state.")
}

func (b *Bot) deleteUserLoadout(i *discordgo.InteractionCreate, target *discordgo.User) {
	targetID, ok := b.memberBohemiaID(i, target.ID, target.Username)
	if !ok {
		return
	}
	for _, path := range b.loadoutPaths(targetID) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			b.respond(i, fmt.Sprintf("Failed to delete the loadout: %v", err))
			return
		}
	}
	b.respond(i, fmt.Sprintf("Loadouts deleted for user %s.", target.Username))
}

// backupLoadout sets path aside as path.backup. An existing backup is
// kept: repeated checks must not overwrite the member's real loadout.
func backupLoadout(path string) error {
	backup := path + ".backup"
	if _, err := os.Stat(backup); err == nil {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Rename(path, backup)
}

// restoreLoadout puts path.backup back in place of path.
func restoreLoadout(path string) error {
	backup := path + ".backup"
	if _, err := os.Stat(backup); os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(backup, path)
}

// copyLoadout overwrites dst with src's contents. A missing src is not
// an error: the inspected member may simply have no saved loadout.
func copyLoadout(src, dst string) error {
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
