package timeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/persist"
)

const maxAutoTitle = 50

// CreateChat adds an empty chat to the index and queues it for storage.
func (t *Timeline) CreateChat(title string, contextIDs []string) model.Chat {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultChatTitle
	}
	c := &model.Chat{
		ID:           t.ids.NewID(),
		Title:        title,
		LastActivity: t.now(),
		ContextIDs:   dedupe(contextIDs),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats[c.ID] = c
	t.messages[c.ID] = []model.Message{}
	t.writer.SaveChat(*c)
	return c.Clone()
}

// RestoreChat puts c back into the index under its own id, keeping any
// existing history bucket. Used when a reply arrives for a chat that was
// deleted while the reply was in flight.
func (t *Timeline) RestoreChat(c model.Chat) model.Chat {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.chats[c.ID]; ok {
		return existing.Clone()
	}
	c = c.Clone()
	c.LastMessage = nil
	t.chats[c.ID] = &c
	if _, ok := t.messages[c.ID]; !ok {
		t.messages[c.ID] = []model.Message{}
	}
	t.writer.SaveChat(c)
	return c.Clone()
}

// Chat returns the summary of chatID.
func (t *Timeline) Chat(chatID string) (model.Chat, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.chats[chatID]
	if !ok {
		return model.Chat{}, false
	}
	return c.Clone(), true
}

// Chats returns every chat summary, most recently active first.
func (t *Timeline) Chats() []model.Chat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chatsLocked()
}

func (t *Timeline) chatsLocked() []model.Chat {
	out := make([]model.Chat, 0, len(t.chats))
	for _, c := range t.chats {
		out = append(out, c.Clone())
	}
	model.SortChats(out)
	return out
}

// RenameChat changes a chat's title.
func (t *Timeline) RenameChat(chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("rename %s: title is empty", chatID)
	}
	return t.mutateChat(chatID, func(c *model.Chat) bool {
		if c.Title == title {
			return false
		}
		c.Title = title
		return true
	})
}

// ArchiveChat sets whether a chat is archived.
func (t *Timeline) ArchiveChat(chatID string, archived bool) error {
	return t.mutateChat(chatID, func(c *model.Chat) bool {
		if c.IsArchived == archived {
			return false
		}
		c.IsArchived = archived
		return true
	})
}

// AttachContexts records context ids on a chat. Already attached ids are
// ignored.
func (t *Timeline) AttachContexts(chatID string, contextIDs []string) error {
	return t.mutateChat(chatID, func(c *model.Chat) bool {
		changed := false
		for _, id := range contextIDs {
			if id != "" && !c.HasContext(id) {
				c.ContextIDs = append(c.ContextIDs, id)
				changed = true
			}
		}
		return changed
	})
}

// MarkRead zeroes a chat's unread count.
func (t *Timeline) MarkRead(chatID string) error {
	return t.mutateChat(chatID, func(c *model.Chat) bool {
		if c.UnreadCount == 0 {
			return false
		}
		c.UnreadCount = 0
		return true
	})
}

// DeleteChat removes a chat and its messages from memory and storage.
func (t *Timeline) DeleteChat(chatID string) (*persist.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.chats[chatID]; !ok {
		return nil, fmt.Errorf("delete %s: %w", chatID, ErrChatNotFound)
	}
	for _, m := range t.messages[chatID] {
		delete(t.selection, m.ID)
	}
	delete(t.chats, chatID)
	delete(t.messages, chatID)
	delete(t.typing, chatID)
	if t.active == chatID {
		t.active = ""
	}
	return t.writer.DeleteChat(chatID), nil
}

// mutateChat applies fn to a chat and queues the summary if fn reports a change.
func (t *Timeline) mutateChat(chatID string, fn func(c *model.Chat) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", chatID, ErrChatNotFound)
	}
	if fn(c) {
		t.writer.SaveChat(*c)
	}
	return nil
}

// titleFrom derives a chat title from the first user message.
func titleFrom(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	if s == "" {
		return model.DefaultChatTitle
	}
	if utf8.RuneCountInString(s) <= maxAutoTitle {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxAutoTitle])) + "..."
}

func dedupe(items []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
