package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	TotalChats    int         `json:"total_chats"`
	ArchivedChats int         `json:"archived_chats"`
	TotalMessages int         `json:"total_messages"`
	KnownTags     int         `json:"known_tags"`
	Contexts      int         `json:"contexts"`
	Roles         []RoleStats `json:"roles"`
}

// RoleStats holds per-role message counts.
type RoleStats struct {
	Role     string `json:"role"`
	Count    int    `json:"count"`
	Thinking int    `json:"with_thinking"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, Roles: []RoleStats{}}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&st.TotalChats)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE is_archived = 1`).Scan(&st.ArchivedChats)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.TotalMessages)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM known_tags`).Scan(&st.KnownTags)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts`).Scan(&st.Contexts)

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, COUNT(*) AS cnt, COUNT(thinking) AS with_thinking
		FROM messages GROUP BY role ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r RoleStats
		rows.Scan(&r.Role, &r.Count, &r.Thinking)
		st.Roles = append(st.Roles, r)
	}

	return st, nil
}
