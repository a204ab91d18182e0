package timeline

import (
	"fmt"
	"strings"

	"github.com/rcliao/chatcore/internal/model"
)

// AddTag puts tag on a chat and registers it as a known tag. Tags are
// case-sensitive; adding a tag the chat already has changes nothing.
func (t *Timeline) AddTag(chatID, tag string) error {
	if strings.TrimSpace(tag) == "" {
		return ErrEmptyTag
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[chatID]
	if !ok {
		return fmt.Errorf("tag %s: %w", chatID, ErrChatNotFound)
	}
	if !t.knownTags[tag] {
		t.knownTags[tag] = true
		t.writer.SaveKnownTag(tag)
	}
	if c.HasTag(tag) {
		return nil
	}
	c.Tags = append(c.Tags, tag)
	t.writer.SaveChat(*c)
	return nil
}

// RemoveTag takes tag off a chat. The tag stays in the known-tag set.
func (t *Timeline) RemoveTag(chatID, tag string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[chatID]
	if !ok {
		return fmt.Errorf("untag %s: %w", chatID, ErrChatNotFound)
	}
	kept := make([]string, 0, len(c.Tags))
	for _, x := range c.Tags {
		if x != tag {
			kept = append(kept, x)
		}
	}
	if len(kept) == len(c.Tags) {
		return nil
	}
	c.Tags = kept
	t.writer.SaveChat(*c)
	return nil
}

// SetFilter replaces the selected-tag filter.
func (t *Timeline) SetFilter(tags []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter = dedupe(tags)
}

// Filter returns the selected-tag filter.
func (t *Timeline) Filter() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string{}, t.filter...)
}

// KnownTags returns every tag ever added, sorted.
func (t *Timeline) KnownTags() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.knownTags)
}

// FilteredChats returns non-archived chats carrying every filter tag, most
// recently active first.
func (t *Timeline) FilteredChats() []model.Chat {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := []model.Chat{}
	for _, c := range t.chatsLocked() {
		if c.IsArchived {
			continue
		}
		match := true
		for _, tag := range t.filter {
			if !c.HasTag(tag) {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out
}
