package timeline

import (
	"fmt"

	"github.com/rcliao/chatcore/internal/model"
)

// Patch lists the message fields Update may replace. Nil fields are left as is.
type Patch struct {
	Content  *string
	Status   *model.Status
	Thinking *model.ThinkingRecord
}

// Append adds m at the tail of its chat. A non-system message becomes the
// chat's last message and the updated summary is queued for storage; the
// message itself is not persisted here.
func (t *Timeline) Append(m model.Message) error {
	if m.ID == "" || !model.ValidRoles[m.Role] || !model.ValidStatuses[m.Status] {
		return fmt.Errorf("%w: id=%q role=%q status=%q", ErrInvalidMessage, m.ID, m.Role, m.Status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[m.ChatID]
	if !ok {
		return fmt.Errorf("append %s: %w: %s", m.ID, ErrChatNotFound, m.ChatID)
	}
	for _, existing := range t.messages[m.ChatID] {
		if existing.ID == m.ID {
			return fmt.Errorf("append %s: %w", m.ID, ErrDuplicateMessage)
		}
	}

	m = m.Clone()
	t.messages[m.ChatID] = append(t.messages[m.ChatID], m)

	if m.Role == model.RoleSystem {
		return nil
	}

	last := m.Clone()
	c.LastMessage = &last
	c.LastActivity = m.Timestamp
	if m.Role == model.RoleUser && c.Title == model.DefaultChatTitle {
		c.Title = titleFrom(m.Content)
	}
	if m.Role == model.RoleAI && m.Status == model.StatusDelivered && m.ChatID != t.active {
		c.UnreadCount++
	}
	// Queued under the lock so summaries reach storage in mutation order.
	t.writer.SaveChat(*c)
	return nil
}

// Update replaces fields of the message with the given id, searching every
// chat. A miss is logged and reported as ErrMessageNotFound; callers are
// expected to recover from it.
func (t *Timeline) Update(id string, p Patch) (model.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chatID, idx, ok := t.locateLocked(id)
	if !ok {
		t.log.Error("update target missing", "message_id", id)
		return model.Message{}, fmt.Errorf("update %s: %w", id, ErrMessageNotFound)
	}

	m := &t.messages[chatID][idx]
	if m.Status == model.StatusDelivered {
		return model.Message{}, fmt.Errorf("update %s: %w", id, ErrMessageDelivered)
	}
	if p.Status != nil && *p.Status != m.Status && !(m.Status == model.StatusSending && *p.Status == model.StatusDelivered) {
		return model.Message{}, fmt.Errorf("update %s: %w: %s -> %s", id, ErrInvalidTransition, m.Status, *p.Status)
	}

	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Thinking != nil {
		th := p.Thinking.Clone()
		m.Thinking = &th
	}
	delivered := false
	if p.Status != nil {
		delivered = m.Status == model.StatusSending && *p.Status == model.StatusDelivered
		m.Status = *p.Status
	}
	updated := m.Clone()

	c, ok := t.chats[chatID]
	if !ok {
		return updated, nil
	}
	dirty := false
	if c.LastMessage != nil && c.LastMessage.ID == id {
		last := updated.Clone()
		c.LastMessage = &last
		dirty = true
	}
	// Unread counts replies, not placeholders, so it moves on delivery.
	if delivered && updated.Role == model.RoleAI && chatID != t.active {
		c.UnreadCount++
		dirty = true
	}
	if dirty {
		t.writer.SaveChat(*c)
	}
	return updated, nil
}

// ReplaceAll swaps chatID's history for msgs, as loaded from storage. Any
// in-memory message not in msgs, such as an unsaved placeholder, is gone
// afterwards.
func (t *Timeline) ReplaceAll(chatID string, msgs []model.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[chatID]
	if !ok {
		return fmt.Errorf("replace %s: %w", chatID, ErrChatNotFound)
	}

	bucket := make([]model.Message, 0, len(msgs))
	seen := map[string]bool{}
	for _, m := range msgs {
		if seen[m.ID] {
			t.log.Warn("duplicate message in loaded history", "chat_id", chatID, "message_id", m.ID)
			continue
		}
		seen[m.ID] = true
		m = m.Clone()
		m.ChatID = chatID
		bucket = append(bucket, m)
	}
	t.messages[chatID] = bucket

	c.LastMessage = nil
	for i := len(bucket) - 1; i >= 0; i-- {
		if bucket[i].Role != model.RoleSystem {
			last := bucket[i].Clone()
			c.LastMessage = &last
			break
		}
	}
	return nil
}

// Find returns the message with the given id from any chat.
func (t *Timeline) Find(id string) (model.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	chatID, idx, ok := t.locateLocked(id)
	if !ok {
		return model.Message{}, false
	}
	return t.messages[chatID][idx].Clone(), true
}

// Messages returns a copy of chatID's history in timeline order.
func (t *Timeline) Messages(chatID string) []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneMessages(t.messages[chatID])
}

// History returns chatID's messages without the one whose id is exclude.
func (t *Timeline) History(chatID, exclude string) []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Message, 0, len(t.messages[chatID]))
	for _, m := range t.messages[chatID] {
		if m.ID != exclude {
			out = append(out, m.Clone())
		}
	}
	return out
}

// ThinkingFor returns the thinking record of the message with the given id.
func (t *Timeline) ThinkingFor(messageID string) (model.ThinkingRecord, bool) {
	m, ok := t.Find(messageID)
	if !ok || m.Thinking == nil {
		return model.ThinkingRecord{}, false
	}
	return *m.Thinking, true
}

func (t *Timeline) locateLocked(id string) (string, int, bool) {
	for chatID, msgs := range t.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				return chatID, i, true
			}
		}
	}
	return "", 0, false
}
