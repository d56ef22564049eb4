package board

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/redtalon/talonbot/internal/platform"
)

type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	messages map[string]platform.Content // message id to content
	order    []string                    // send order

	sends  int
	edits  int
	purges int

	channelErr error
	editErr    error // consumed by the next Edit call
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{messages: make(map[string]platform.Content)}
}

func (f *fakeMessenger) CheckChannel(ctx context.Context, channelID string) error {
	return f.channelErr
}

func (f *fakeMessenger) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
	}
	return &platform.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeMessenger) Send(ctx context.Context, channelID string, c platform.Content) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.messages[id] = c
	f.order = append(f.order, id)
	return &platform.Message{ID: id, ChannelID: channelID}, nil
}

func (f *fakeMessenger) Edit(ctx context.Context, channelID, messageID string, c platform.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	if f.editErr != nil {
		err := f.editErr
		f.editErr = nil
		return err
	}
	if _, ok := f.messages[messageID]; !ok {
		return fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
	}
	f.messages[messageID] = c
	return nil
}

func (f *fakeMessenger) Delete(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
	}
	delete(f.messages, messageID)
	return nil
}

func (f *fakeMessenger) Purge(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	f.messages = make(map[string]platform.Content)
	return nil
}

type fakeStore struct {
	mu     sync.Mutex
	boards map[string][2]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{boards: make(map[string][2]string)}
}

func (f *fakeStore) BoardMessage(key string) (string, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.boards[key]
	return v[0], v[1], ok, nil
}

func (f *fakeStore) SetBoardMessage(key, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards[key] = [2]string{channelID, messageID}
	return nil
}

func textRender(text string) RenderFunc {
	return func(ctx context.Context) (platform.Content, error) {
		return platform.Content{Text: text}, nil
	}
}

func TestSyncCreatesAndPersists(t *testing.T) {
	msgr := newFakeMessenger()
	st := newFakeStore()
	s := NewSynchronizer(msgr, st)

	if err := s.Sync(context.Background(), "b", "chan", textRender("hello")); err != nil {
		t.Fatalf("Sync err=%v", err)
	}
	if msgr.sends != 1 {
		t.Fatalf("sends = %d, want 1", msgr.sends)
	}
	_, id, ok, _ := st.BoardMessage("b")
	if !ok {
		t.Fatal("board id not persisted")
	}
	if got := msgr.messages[id]; got.Text != "hello" {
		t.Errorf("content = %+v", got)
	}
}

func TestSyncSelfHealing(t *testing.T) {
	msgr := newFakeMessenger()
	st := newFakeStore()
	st.SetBoardMessage("b", "chan", "gone") // points at a deleted message
	s := NewSynchronizer(msgr, st)

	if err := s.Sync(context.Background(), "b", "chan", textRender("v1")); err != nil {
		t.Fatalf("Sync err=%v", err)
	}
	if msgr.sends != 1 {
		t.Fatalf("sends = %d, want exactly one recreation", msgr.sends)
	}
	_, id, _, _ := st.BoardMessage("b")
	if id == "gone" {
		t.Fatal("stale id not overwritten")
	}

	// next sync edits the same message, no duplicate creation
	if err := s.Sync(context.Background(), "b", "chan", textRender("v2")); err != nil {
		t.Fatalf("second Sync err=%v", err)
	}
	if msgr.sends != 1 {
		t.Errorf("sends = %d after second sync, want 1", msgr.sends)
	}
	if got := msgr.messages[id]; got.Text != "v2" {
		t.Errorf("content = %+v", got)
	}
}

func TestSyncRetriesEditRace(t *testing.T) {
	msgr := newFakeMessenger()
	st := newFakeStore()
	s := NewSynchronizer(msgr, st)
	s.backoff = 0

	if err := s.Sync(context.Background(), "b", "chan", textRender("v1")); err != nil {
		t.Fatalf("Sync err=%v", err)
	}

	// the message dies between fetch and edit
	msgr.editErr = fmt.Errorf("raced delete: %w", platform.ErrNotFound)
	if err := s.Sync(context.Background(), "b", "chan", textRender("v2")); err != nil {
		t.Fatalf("Sync after race err=%v", err)
	}
	_, id, _, _ := st.BoardMessage("b")
	if got := msgr.messages[id]; got.Text != "v2" {
		t.Errorf("content after retry = %+v", got)
	}
}

func TestSyncChannelErrorsFailFast(t *testing.T) {
	msgr := newFakeMessenger()
	msgr.channelErr = platform.ErrForbidden
	s := NewSynchronizer(msgr, newFakeStore())
	s.backoff = 0

	err := s.Sync(context.Background(), "b", "chan", textRender("x"))
	if !errors.Is(err, platform.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if msgr.sends != 0 {
		t.Errorf("sends = %d, want 0", msgr.sends)
	}
}
