package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/chatcore/internal/model"
)

// SaveContext stores or replaces an attachable context.
func (s *SQLiteStore) SaveContext(ctx context.Context, c model.Context) error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("context title is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contexts (id, title, description, content, type, tags, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description, content = excluded.content,
		   type = excluded.type, tags = excluded.tags, category = excluded.category`,
		c.ID, c.Title, c.Description, c.Content, c.Type, jsonList(c.Tags), c.Category,
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save context %s: %w", c.ID, err)
	}
	return nil
}

// Contexts returns the contexts with the given ids in the order asked.
func (s *SQLiteStore) Contexts(ctx context.Context, ids []string) ([]model.Context, error) {
	out := make([]model.Context, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, title, description, content, type, tags, category FROM contexts WHERE id = ?`, id)
		c, err := scanContext(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ListContexts lists contexts, newest first.
func (s *SQLiteStore) ListContexts(ctx context.Context, p ContextListParams) ([]model.Context, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"1 = 1"}
	args := []interface{}{}
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, p.Category)
	}
	for _, tag := range p.Tags {
		where = append(where, "tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}

	query := fmt.Sprintf(`SELECT id, title, description, content, type, tags, category
		FROM contexts WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contexts := []model.Context{}
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, c)
	}
	return contexts, rows.Err()
}

// DeleteContext removes a context by id.
func (s *SQLiteStore) DeleteContext(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("context not found: %s", id)
	}
	return nil
}

func scanContext(row scanner) (model.Context, error) {
	var c model.Context
	var tags sql.NullString
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Content, &c.Type, &tags, &c.Category); err != nil {
		return c, err
	}
	if tags.Valid {
		json.Unmarshal([]byte(tags.String), &c.Tags)
	}
	return c, nil
}
