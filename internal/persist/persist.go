// Package persist defines the storage collaborator and a write-behind writer
// that applies saves in order without blocking in-memory mutations.
package persist

import (
	"context"

	"github.com/rcliao/chatcore/internal/model"
)

// Backend is durable storage for chats and messages.
type Backend interface {
	SaveMessage(ctx context.Context, m model.Message) error
	SaveChat(ctx context.Context, c model.Chat) error
	LoadMessages(ctx context.Context, chatID string) ([]model.Message, error)
	LoadChats(ctx context.Context) ([]model.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	ClearAllData(ctx context.Context) error

	// SaveKnownTag records tag in the global known-tag set.
	SaveKnownTag(ctx context.Context, tag string) error
	LoadKnownTags(ctx context.Context) ([]string, error)
}
