package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nivethaug/clawd-backend/internal/sessions/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    session_key TEXT UNIQUE NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    archived INTEGER NOT NULL DEFAULT 0,
    scope TEXT,
    channel TEXT NOT NULL DEFAULT 'webchat',
    agent_id TEXT NOT NULL DEFAULT 'main',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_used_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    image TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init sessions schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, projectID int64, sessionKey, label string) (*domain.Session, error) {
	const q = `
INSERT INTO sessions (project_id, session_key, label, channel, agent_id)
VALUES (?, ?, ?, ?, ?);
`
	res, err := s.db.ExecContext(ctx, q, projectID, sessionKey, label, domain.DefaultChannel, domain.DefaultAgentID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

const sqliteSessionQuery = `
SELECT id, project_id, session_key, label, archived, scope, channel, agent_id, created_at, last_used_at
FROM sessions
`

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Session, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, sqliteSessionQuery+`WHERE id = ?;`, id))
}

func (s *SQLiteStore) GetByKey(ctx context.Context, sessionKey string) (*domain.Session, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, sqliteSessionQuery+`WHERE session_key = ? AND archived = 0;`, sessionKey))
}

func (s *SQLiteStore) scanOne(row *sql.Row) (*domain.Session, error) {
	var out domain.Session
	var created string
	var lastUsed *string
	err := row.Scan(&out.ID, &out.ProjectID, &out.SessionKey, &out.Label, &out.Archived,
		&out.Scope, &out.Channel, &out.AgentID, &created, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	out.CreatedAt = parseSessionTime(created)
	if lastUsed != nil {
		t := parseSessionTime(*lastUsed)
		out.LastUsedAt = &t
	}
	return &out, nil
}

func (s *SQLiteStore) ListByProject(ctx context.Context, projectID int64) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteSessionQuery+`WHERE project_id = ? AND archived = 0 ORDER BY created_at DESC, id DESC;`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0, 8)
	for rows.Next() {
		var sess domain.Session
		var created string
		var lastUsed *string
		if err := rows.Scan(&sess.ID, &sess.ProjectID, &sess.SessionKey, &sess.Label, &sess.Archived,
			&sess.Scope, &sess.Channel, &sess.AgentID, &created, &lastUsed); err != nil {
			return nil, err
		}
		sess.CreatedAt = parseSessionTime(created)
		if lastUsed != nil {
			t := parseSessionTime(*lastUsed)
			sess.LastUsedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Touch(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?;`, id)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?;`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLiteStore) PurgeProject(ctx context.Context, projectID int64) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT session_key FROM sessions WHERE project_id = ?;`, projectID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, 8)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, err
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM messages WHERE session_id IN (SELECT id FROM sessions WHERE project_id = ?);`, projectID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE project_id = ?;`, projectID); err != nil {
		return nil, err
	}
	return keys, tx.Commit()
}

func (s *SQLiteStore) AddMessage(ctx context.Context, sessionID int64, role, content string, image *string) (*domain.Message, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, image) VALUES (?, ?, ?, ?);`,
		sessionID, role, content, image)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var m domain.Message
	var created string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, session_id, role, content, image, created_at FROM messages WHERE id = ?;`, id).
		Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Image, &created)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = parseSessionTime(created)
	return &m, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	const q = `
SELECT id, session_id, role, content, image, created_at
FROM messages
WHERE session_id = ?
ORDER BY created_at ASC, id ASC;
`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 32)
	for rows.Next() {
		var m domain.Message
		var created string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Image, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = parseSessionTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

func parseSessionTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
