package store

import (
	"context"
	"fmt"

	"github.com/rcliao/chatcore/internal/model"
)

// ChatExport is one chat with its full history.
type ChatExport struct {
	Chat     model.Chat      `json:"chat"`
	Messages []model.Message `json:"messages"`
}

// Export is the portable form of a whole database.
type Export struct {
	Chats     []ChatExport    `json:"chats"`
	KnownTags []string        `json:"knownTags"`
	Contexts  []model.Context `json:"contexts"`
}

// ExportAll returns every chat with its messages, plus tags and contexts.
// A non-empty chatID restricts the export to that chat.
func (s *SQLiteStore) ExportAll(ctx context.Context, chatID string) (*Export, error) {
	chats, err := s.LoadChats(ctx)
	if err != nil {
		return nil, err
	}

	out := &Export{Chats: []ChatExport{}}
	for _, c := range chats {
		if chatID != "" && c.ID != chatID {
			continue
		}
		msgs, err := s.LoadMessages(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load messages %s: %w", c.ID, err)
		}
		out.Chats = append(out.Chats, ChatExport{Chat: c, Messages: msgs})
	}

	if out.KnownTags, err = s.LoadKnownTags(ctx); err != nil {
		return nil, err
	}
	if out.Contexts, err = s.ListContexts(ctx, ContextListParams{Limit: 100000}); err != nil {
		return nil, err
	}
	return out, nil
}

// Import stores an export. Existing rows with the same ids are overwritten.
// Returns the number of messages imported.
func (s *SQLiteStore) Import(ctx context.Context, e *Export) (int, error) {
	imported := 0
	for _, tag := range e.KnownTags {
		if err := s.SaveKnownTag(ctx, tag); err != nil {
			return imported, err
		}
	}
	for _, c := range e.Contexts {
		if err := s.SaveContext(ctx, c); err != nil {
			return imported, err
		}
	}
	for _, ce := range e.Chats {
		if err := s.SaveChat(ctx, ce.Chat); err != nil {
			return imported, err
		}
		for _, m := range ce.Messages {
			m.ChatID = ce.Chat.ID
			if err := s.SaveMessage(ctx, m); err != nil {
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}
