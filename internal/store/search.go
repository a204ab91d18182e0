package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/chatcore/internal/model"
)

// Search finds delivered messages whose content contains the query substring,
// newest first.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Message, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"status = ?", "content LIKE ?"}
	args := []interface{}{string(model.StatusDelivered), "%" + p.Query + "%"}

	if p.ChatID != "" {
		where = append(where, "chat_id = ?")
		args = append(args, p.ChatID)
	}
	if p.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(p.Role))
	}

	query := fmt.Sprintf(`
		SELECT id, chat_id, content, role, timestamp, status, thinking
		FROM messages
		WHERE %s
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
