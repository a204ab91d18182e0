package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/chatcore/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		last_activity TEXT NOT NULL,
		last_message  TEXT,
		context_ids   TEXT,
		unread_count  INTEGER NOT NULL DEFAULT 0,
		is_archived   INTEGER NOT NULL DEFAULT 0,
		tags          TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_chats_activity ON chats(last_activity DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id        TEXT PRIMARY KEY,
		chat_id   TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		content   TEXT NOT NULL,
		role      TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		status    TEXT NOT NULL,
		thinking  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp);

	CREATE TABLE IF NOT EXISTS known_tags (
		tag        TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contexts (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT '',
		tags        TEXT,
		category    TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contexts_category ON contexts(category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveMessage inserts m, or replaces the stored row carrying the same id.
func (s *SQLiteStore) SaveMessage(ctx context.Context, m model.Message) error {
	var thinking *string
	if m.Thinking != nil {
		b, err := json.Marshal(m.Thinking)
		if err != nil {
			return fmt.Errorf("encode thinking: %w", err)
		}
		t := string(b)
		thinking = &t
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, content, role, timestamp, status, thinking)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   content = excluded.content, status = excluded.status, thinking = excluded.thinking`,
		m.ID, m.ChatID, m.Content, string(m.Role), formatTime(m.Timestamp), string(m.Status), thinking)
	if err != nil {
		return fmt.Errorf("save message %s: %w", m.ID, err)
	}
	return nil
}

// SaveChat upserts the chat summary. It never touches the chat's messages.
func (s *SQLiteStore) SaveChat(ctx context.Context, c model.Chat) error {
	var lastMessage *string
	if c.LastMessage != nil {
		b, _ := json.Marshal(c.LastMessage)
		lm := string(b)
		lastMessage = &lm
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, last_activity, last_message, context_ids, unread_count, is_archived, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, last_activity = excluded.last_activity,
		   last_message = excluded.last_message, context_ids = excluded.context_ids,
		   unread_count = excluded.unread_count, is_archived = excluded.is_archived,
		   tags = excluded.tags`,
		c.ID, c.Title, formatTime(c.LastActivity), lastMessage, jsonList(c.ContextIDs),
		c.UnreadCount, c.IsArchived, jsonList(c.Tags))
	if err != nil {
		return fmt.Errorf("save chat %s: %w", c.ID, err)
	}
	return nil
}

// LoadMessages returns a chat's messages in timeline order.
func (s *SQLiteStore) LoadMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, content, role, timestamp, status, thinking
		 FROM messages WHERE chat_id = ? ORDER BY timestamp, id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// LoadChats returns every chat summary, most recently active first.
func (s *SQLiteStore) LoadChats(ctx context.Context) ([]model.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, last_activity, last_message, context_ids, unread_count, is_archived, tags
		 FROM chats ORDER BY last_activity DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []model.Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// DeleteChat removes a chat; its messages go with it.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	return err
}

// ClearAllData empties every table.
func (s *SQLiteStore) ClearAllData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"messages", "chats", "known_tags", "contexts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// SaveKnownTag adds tag to the known-tag set. Duplicates are ignored.
func (s *SQLiteStore) SaveKnownTag(ctx context.Context, tag string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO known_tags (tag, created_at) VALUES (?, ?)`,
		tag, formatTime(time.Now()))
	return err
}

// LoadKnownTags returns the known-tag set in sorted order.
func (s *SQLiteStore) LoadKnownTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM known_tags ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row scanner) (model.Message, error) {
	var m model.Message
	var role, status, timestamp string
	var thinking sql.NullString

	if err := row.Scan(&m.ID, &m.ChatID, &m.Content, &role, &timestamp, &status, &thinking); err != nil {
		return m, err
	}

	m.Role = model.Role(role)
	m.Status = model.Status(status)
	m.Timestamp = parseTime(timestamp)
	if thinking.Valid {
		var t model.ThinkingRecord
		if err := json.Unmarshal([]byte(thinking.String), &t); err == nil {
			m.Thinking = &t
		}
	}
	return m, nil
}

func scanChat(row scanner) (model.Chat, error) {
	var c model.Chat
	var lastActivity string
	var lastMessage, contextIDs, tags sql.NullString

	err := row.Scan(&c.ID, &c.Title, &lastActivity, &lastMessage, &contextIDs,
		&c.UnreadCount, &c.IsArchived, &tags)
	if err != nil {
		return c, err
	}

	c.LastActivity = parseTime(lastActivity)
	if lastMessage.Valid {
		var m model.Message
		if err := json.Unmarshal([]byte(lastMessage.String), &m); err == nil {
			c.LastMessage = &m
		}
	}
	if contextIDs.Valid {
		json.Unmarshal([]byte(contextIDs.String), &c.ContextIDs)
	}
	if tags.Valid {
		json.Unmarshal([]byte(tags.String), &c.Tags)
	}
	return c, nil
}

func jsonList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	b, _ := json.Marshal(items)
	s := string(b)
	return &s
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
