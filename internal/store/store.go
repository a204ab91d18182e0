// Package store provides the chat storage interface and SQLite implementation.
package store

import (
	"context"

	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/persist"
)

// SearchParams holds parameters for searching messages.
type SearchParams struct {
	ChatID string
	Query  string
	Role   model.Role
	Limit  int
}

// ContextListParams holds parameters for listing attached contexts.
type ContextListParams struct {
	Category string
	Tags     []string
	Limit    int
}

// Store is persistent chat storage: the timeline backend plus the
// reference-material and reporting queries the CLI uses.
type Store interface {
	persist.Backend

	// SaveContext stores or replaces an attachable context.
	SaveContext(ctx context.Context, c model.Context) error

	// Contexts returns the contexts with the given ids, in the order asked.
	// Unknown ids are skipped.
	Contexts(ctx context.Context, ids []string) ([]model.Context, error)

	// ListContexts lists contexts matching the filters.
	ListContexts(ctx context.Context, p ContextListParams) ([]model.Context, error)

	// DeleteContext removes a context.
	DeleteContext(ctx context.Context, id string) error

	// Search finds messages whose content contains the query.
	Search(ctx context.Context, p SearchParams) ([]model.Message, error)

	// Close closes the store.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
