package board

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/redtalon/talonbot/internal/platform"
)

// placeholderText seeds a freshly created board message before the first
// render lands.
const placeholderText = "Setting up this status board..."

// retryBackoff separates the two attempts when an edit races an external
// delete.
const retryBackoff = 2 * time.Second

// RenderFunc produces a board's content from current external state.
type RenderFunc func(ctx context.Context) (platform.Content, error)

// Store persists the board key to message id mapping.
type Store interface {
	BoardMessage(boardKey string) (channelID, messageID string, found bool, err error)
	SetBoardMessage(boardKey, channelID, messageID string) error
}

// Synchronizer locates or recreates each board's message and rewrites it
// in place. Manual deletion of a board message heals silently on the next
// sync. Concurrent syncs of the same board key collapse into one.
type Synchronizer struct {
	msgr    platform.Messenger
	store   Store
	group   singleflight.Group
	backoff time.Duration

	mu        sync.Mutex
	forbidden map[string]bool // boards already reported as forbidden
}

func NewSynchronizer(msgr platform.Messenger, store Store) *Synchronizer {
	return &Synchronizer{
		msgr:      msgr,
		store:     store,
		backoff:   retryBackoff,
		forbidden: make(map[string]bool),
	}
}

// Sync brings the board's message in line with render's output. Safe to
// call from a periodic tick and a user-triggered refresh at once.
func (s *Synchronizer) Sync(ctx context.Context, boardKey, channelID string, render RenderFunc) error {
	_, err, _ := s.group.Do(boardKey, func() (any, error) {
		retry, err := s.syncOnce(ctx, boardKey, channelID, render)
		if retry {
			// The message vanished between fetch and edit. One retry
			// covers it; the recreate path takes over on the way back in.
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			_, err = s.syncOnce(ctx, boardKey, channelID, render)
		}
		return nil, err
	})
	s.note(boardKey, err)
	return err
}

// syncOnce runs one read-render-write pass. retry is true only when the
// edit raced an external delete; configuration errors, including a
// missing channel, are never retried.
func (s *Synchronizer) syncOnce(ctx context.Context, boardKey, channelID string, render RenderFunc) (retry bool, _ error) {
	if err := s.msgr.CheckChannel(ctx, channelID); err != nil {
		return false, fmt.Errorf("board %s: channel %s: %w", boardKey, channelID, err)
	}

	msg, err := s.resolveMessage(ctx, boardKey, channelID)
	if err != nil {
		return false, fmt.Errorf("board %s: %w", boardKey, err)
	}

	content, err := render(ctx)
	if err != nil {
		return false, fmt.Errorf("board %s: render: %w", boardKey, err)
	}

	if err := s.msgr.Edit(ctx, msg.ChannelID, msg.ID, content); err != nil {
		return errors.Is(err, platform.ErrNotFound), fmt.Errorf("board %s: edit: %w", boardKey, err)
	}
	return false, nil
}

// resolveMessage returns the board's live message, creating a placeholder
// and persisting its id whenever the stored one is missing or stale.
func (s *Synchronizer) resolveMessage(ctx context.Context, boardKey, channelID string) (*platform.Message, error) {
	storedChannel, messageID, found, err := s.store.BoardMessage(boardKey)
	if err != nil {
		return nil, err
	}
	if found && storedChannel == channelID {
		msg, err := s.msgr.FetchMessage(ctx, channelID, messageID)
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, platform.ErrNotFound) {
			return nil, err
		}
	}

	msg, err := s.msgr.Send(ctx, channelID, platform.Content{Text: placeholderText})
	if err != nil {
		return nil, err
	}
	if err := s.store.SetBoardMessage(boardKey, channelID, msg.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

// note logs sync failures, reporting a forbidden board only once until it
// recovers.
func (s *Synchronizer) note(boardKey string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		if s.forbidden[boardKey] {
			log.Printf("[board] %s: permissions restored", boardKey)
		}
		delete(s.forbidden, boardKey)
		return
	}
	if errors.Is(err, platform.ErrForbidden) {
		if !s.forbidden[boardKey] {
			log.Printf("[board] %s: %v (will not retry until permissions change)", boardKey, err)
			s.forbidden[boardKey] = true
		}
		return
	}
	log.Printf("[board] %s: %v", boardKey, err)
}
