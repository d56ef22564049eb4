package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/platform"
	"github.com/redtalon/talonbot/internal/workshop"
)

// Custom id prefixes for the carousel's buttons. Arguments are colon
// separated, e.g. "update_mod:<id>:<version>".
const (
	ActionAddMod    = "add_mod"
	ActionUpdateMod = "update_mod"
	ActionCheckMod  = "check_mod"
	ActionRemoveMod = "remove_mod"
)

// Marketplace is the workshop surface the carousel scrapes.
type Marketplace interface {
	ModDetails(ctx context.Context, id string) (workshop.ModDetails, error)
	Search(ctx context.Context, query string) ([]workshop.SearchResult, error)
}

// Carousel maintains one message per configured mod in a dedicated
// channel, refreshing a single mod per tick so the per-mod marketplace
// scrape cost spreads over time. Message handles live only in memory;
// the first tick purges the channel and starts from scratch.
type Carousel struct {
	msgr      platform.Messenger
	config    *gamefile.ConfigPoller
	shop      Marketplace
	channelID string
	now       func() time.Time

	mu       sync.Mutex
	cursor   int
	messages map[string]string // mod id to message id

	group singleflight.Group // serializes button actions against the tick
}

func NewCarousel(msgr platform.Messenger, config *gamefile.ConfigPoller, shop Marketplace, channelID string) *Carousel {
	return &Carousel{
		msgr:      msgr,
		config:    config,
		shop:      shop,
		channelID: channelID,
		now:       time.Now,
		cursor:    -1,
		messages:  make(map[string]string),
	}
}

// Tick advances the cursor one mod and refreshes that mod's message. A
// failing scrape skips the refresh but never stalls the rotation.
func (c *Carousel) Tick(ctx context.Context) error {
	c.mu.Lock()
	first := c.cursor == -1
	c.mu.Unlock()

	if first {
		// No persisted link between old messages and current mods, so
		// start from a clean channel.
		if err := c.msgr.Purge(ctx, c.channelID); err != nil {
			return fmt.Errorf("carousel: purge: %w", err)
		}
		c.mu.Lock()
		c.messages = make(map[string]string)
		c.mu.Unlock()
	}

	mods := c.config.Snapshot().Game.Mods
	if len(mods) == 0 {
		return nil
	}

	c.mu.Lock()
	c.cursor++
	if c.cursor >= len(mods) {
		c.cursor = 0
	}
	modID := mods[c.cursor].ModID
	c.mu.Unlock()

	if err := c.Refresh(ctx, modID); err != nil {
		return fmt.Errorf("carousel: mod %s: %w", modID, err)
	}
	return nil
}

// Refresh re-renders one mod's message out of band, serialized per mod
// id so a button press cannot race the periodic tick into a duplicate
// message.
func (c *Carousel) Refresh(ctx context.Context, modID string) error {
	_, err, _ := c.group.Do(modID, func() (any, error) {
		content, err := c.renderMod(ctx, modID)
		if err != nil {
			return nil, err
		}
		return nil, c.upsert(ctx, modID, content)
	})
	return err
}

func (c *Carousel) upsert(ctx context.Context, modID string, content platform.Content) error {
	c.mu.Lock()
	messageID, ok := c.messages[modID]
	c.mu.Unlock()

	if ok {
		err := c.msgr.Edit(ctx, c.channelID, messageID, content)
		if err == nil {
			return nil
		}
		if !errors.Is(err, platform.ErrNotFound) {
			return err
		}
	}

	msg, err := c.msgr.Send(ctx, c.channelID, content)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages[modID] = msg.ID
	c.mu.Unlock()
	return nil
}

func (c *Carousel) renderMod(ctx context.Context, modID string) (platform.Content, error) {
	details, err := c.shop.ModDetails(ctx, modID)
	if err != nil {
		return platform.Content{}, err
	}
	installed := c.config.Snapshot().SearchableMods[modID]

	embed := platform.Embed{
		Timestamp:  c.now(),
		FooterText: "Last updated",
	}
	checkButton := platform.Button{
		Label:    "Check for updates",
		CustomID: fmt.Sprintf("%s:%s", ActionCheckMod, modID),
		Style:    platform.ButtonPrimary,
	}
	removeButton := platform.Button{
		Label:    "Remove Mod",
		CustomID: fmt.Sprintf("%s:%s", ActionRemoveMod, modID),
		Style:    platform.ButtonDanger,
	}

	var buttons []platform.Button
	if installed.Version != details.Version {
		embed.Title = fmt.Sprintf("%s (Update Available)", details.Name)
		embed.Color = colorBlue
		embed.Description = fmt.Sprintf(
			"**Version: %s ⟶ %s**\n[Workshop Link](%s)",
			installed.Version, details.Version, workshop.PageURL(modID),
		)
		buttons = append(buttons, platform.Button{
			Label:    "Update Mod",
			CustomID: fmt.Sprintf("%s:%s:%s", ActionUpdateMod, modID, details.Version),
			Style:    platform.ButtonSuccess,
		})
	} else {
		embed.Title = details.Name
		embed.Color = colorGreen
		embed.Description = fmt.Sprintf(
			"**Version: %s**\n[Workshop Link](%s)",
			details.Version, workshop.PageURL(modID),
		)
	}
	buttons = append(buttons, checkButton, removeButton)

	if len(details.Dependencies) > 0 {
		var deps strings.Builder
		for _, dep := range details.Dependencies {
			deps.WriteString(dep.Name)
			deps.WriteByte('\n')
		}
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  "Dependencies",
			Value: deps.String(),
		})
	}

	return platform.Content{Embeds: []platform.Embed{embed}, Buttons: buttons}, nil
}

// AddMod writes a new mod into the server configuration and posts its
// message immediately instead of waiting for the cursor.
func (c *Carousel) AddMod(ctx context.Context, modID, name, version string) error {
	if err := gamefile.AddMod(c.config.Path(), modID, name, version); err != nil {
		return err
	}
	c.config.Reload()
	return c.Refresh(ctx, modID)
}

// UpdateMod bumps the tracked version and re-renders the mod's message.
func (c *Carousel) UpdateMod(ctx context.Context, modID, version string) error {
	if err := gamefile.UpdateModVersion(c.config.Path(), modID, version); err != nil {
		return err
	}
	c.config.Reload()
	return c.Refresh(ctx, modID)
}

// RemoveMod drops the mod from the configuration and deletes its message.
func (c *Carousel) RemoveMod(ctx context.Context, modID string) error {
	if err := gamefile.RemoveMod(c.config.Path(), modID); err != nil {
		return err
	}
	c.config.Reload()

	c.mu.Lock()
	messageID, ok := c.messages[modID]
	delete(c.messages, modID)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.msgr.Delete(ctx, c.channelID, messageID); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return err
	}
	return nil
}

// Search posts a result picker for a free-text marketplace query. Mods
// already configured show up disabled so they cannot be added twice.
func (c *Carousel) Search(ctx context.Context, query string) error {
	results, err := c.shop.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("carousel: search %q: %w", query, err)
	}
	installed := c.config.Snapshot().SearchableMods

	embed := platform.Embed{Timestamp: c.now()}
	var buttons []platform.Button
	for i, mod := range results {
		b := platform.Button{
			Label:    fmt.Sprintf("%d. %s", i+1, mod.Name),
			CustomID: fmt.Sprintf("%s:%s:%s:%s", ActionAddMod, mod.ID, mod.Name, mod.Version),
			Style:    platform.ButtonPrimary,
			Row:      i,
		}
		if _, ok := installed[mod.ID]; ok {
			b.Label += " (Installed)"
			b.Style = platform.ButtonSecondary
			b.Disabled = true
		}
		buttons = append(buttons, b)
	}

	if len(results) > 0 {
		embed.Color = colorGreen
		embed.Description = fmt.Sprintf("Search results for **%s**:", query)
	} else {
		embed.Color = colorRed
		embed.Description = fmt.Sprintf("No mods found for **%s**.", query)
	}

	_, err = c.msgr.Send(ctx, c.channelID, platform.Content{
		Embeds:  []platform.Embed{embed},
		Buttons: buttons,
	})
	return err
}
