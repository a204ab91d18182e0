package timeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/chatcore/internal/model"
)

const preloadConcurrency = 4

func (t *Timeline) beginLoad() {
	t.mu.Lock()
	t.loading++
	t.mu.Unlock()
}

func (t *Timeline) endLoad() {
	t.mu.Lock()
	t.loading--
	t.mu.Unlock()
}

// Load replaces the chat index and known tags with what storage holds.
// Message histories are loaded lazily by Activate or Preload.
func (t *Timeline) Load(ctx context.Context) error {
	t.beginLoad()
	defer t.endLoad()

	chats, err := t.writer.LoadChats(ctx)
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}
	tags, err := t.writer.LoadKnownTags(ctx)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats = make(map[string]*model.Chat, len(chats))
	for _, c := range chats {
		c := c.Clone()
		t.chats[c.ID] = &c
		for _, tag := range c.Tags {
			t.knownTags[tag] = true
		}
	}
	for _, tag := range tags {
		t.knownTags[tag] = true
	}
	for id := range t.messages {
		if _, ok := t.chats[id]; !ok {
			delete(t.messages, id)
		}
	}
	t.log.Debug("chats loaded", "chats", len(chats), "known_tags", len(tags))
	return nil
}

// Activate makes chatID the active chat: its history is reloaded from
// storage and its unread count reset.
func (t *Timeline) Activate(ctx context.Context, chatID string) error {
	if _, ok := t.Chat(chatID); !ok {
		return fmt.Errorf("activate %s: %w", chatID, ErrChatNotFound)
	}

	t.beginLoad()
	msgs, err := t.writer.LoadMessages(ctx, chatID)
	t.endLoad()
	if err != nil {
		return fmt.Errorf("load messages %s: %w", chatID, err)
	}
	if err := t.ReplaceAll(chatID, msgs); err != nil {
		return err
	}

	t.mu.Lock()
	t.active = chatID
	t.mu.Unlock()
	return t.MarkRead(chatID)
}

// ActiveChat returns the id of the active chat, if any.
func (t *Timeline) ActiveChat() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Preload loads the histories of several chats concurrently. An empty list
// means every indexed chat.
func (t *Timeline) Preload(ctx context.Context, chatIDs []string) error {
	if len(chatIDs) == 0 {
		for _, c := range t.Chats() {
			chatIDs = append(chatIDs, c.ID)
		}
	}

	t.beginLoad()
	defer t.endLoad()

	histories := make([][]model.Message, len(chatIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for i, id := range chatIDs {
		i, id := i, id
		g.Go(func() error {
			msgs, err := t.writer.LoadMessages(gctx, id)
			if err != nil {
				return fmt.Errorf("load messages %s: %w", id, err)
			}
			histories[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, id := range chatIDs {
		if err := t.ReplaceAll(id, histories[i]); err != nil {
			return err
		}
	}
	return nil
}
