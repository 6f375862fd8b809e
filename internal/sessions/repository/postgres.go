package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivethaug/clawd-backend/internal/sessions/domain"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS sessions (
    id BIGSERIAL PRIMARY KEY,
    project_id BIGINT NOT NULL,
    session_key TEXT UNIQUE NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    archived BOOLEAN NOT NULL DEFAULT FALSE,
    scope TEXT,
    channel TEXT NOT NULL DEFAULT 'webchat',
    agent_id TEXT NOT NULL DEFAULT 'main',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_used_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS messages (
    id BIGSERIAL PRIMARY KEY,
    session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    image TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`
	if _, err := s.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("init sessions schema: %w", err)
	}
	return nil
}

const sessionCols = `id, project_id, session_key, label, archived, scope, channel, agent_id, created_at, last_used_at`

func (s *PostgresStore) Create(ctx context.Context, projectID int64, sessionKey, label string) (*domain.Session, error) {
	const q = `
INSERT INTO sessions (project_id, session_key, label, channel, agent_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + sessionCols + `;`

	var out domain.Session
	err := s.db.QueryRow(ctx, q, projectID, sessionKey, label, domain.DefaultChannel, domain.DefaultAgentID).
		Scan(&out.ID, &out.ProjectID, &out.SessionKey, &out.Label, &out.Archived,
			&out.Scope, &out.Channel, &out.AgentID, &out.CreatedAt, &out.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = $1;`
	return s.scanOne(s.db.QueryRow(ctx, q, id))
}

func (s *PostgresStore) GetByKey(ctx context.Context, sessionKey string) (*domain.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE session_key = $1 AND NOT archived;`
	return s.scanOne(s.db.QueryRow(ctx, q, sessionKey))
}

func (s *PostgresStore) scanOne(row pgx.Row) (*domain.Session, error) {
	var out domain.Session
	err := row.Scan(&out.ID, &out.ProjectID, &out.SessionKey, &out.Label, &out.Archived,
		&out.Scope, &out.Channel, &out.AgentID, &out.CreatedAt, &out.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) ListByProject(ctx context.Context, projectID int64) ([]domain.Session, error) {
	const q = `
SELECT ` + sessionCols + `
FROM sessions
WHERE project_id = $1 AND NOT archived
ORDER BY created_at DESC;
`
	rows, err := s.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0, 8)
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.ProjectID, &sess.SessionKey, &sess.Label, &sess.Archived,
			&sess.Scope, &sess.Channel, &sess.AgentID, &sess.CreatedAt, &sess.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Touch(ctx context.Context, id int64) error {
	const q = `UPDATE sessions SET last_used_at = now() WHERE id = $1;`
	_, err := s.db.Exec(ctx, q, id)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1;`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) PurgeProject(ctx context.Context, projectID int64) ([]string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT session_key FROM sessions WHERE project_id = $1;`, projectID)
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

	if _, err := tx.Exec(ctx, `
DELETE FROM messages WHERE session_id IN (SELECT id FROM sessions WHERE project_id = $1);`, projectID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE project_id = $1;`, projectID); err != nil {
		return nil, err
	}
	return keys, tx.Commit(ctx)
}

func (s *PostgresStore) AddMessage(ctx context.Context, sessionID int64, role, content string, image *string) (*domain.Message, error) {
	const q = `
INSERT INTO messages (session_id, role, content, image)
VALUES ($1, $2, $3, $4)
RETURNING id, session_id, role, content, image, created_at;
`
	var m domain.Message
	err := s.db.QueryRow(ctx, q, sessionID, role, content, image).
		Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Image, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	const q = `
SELECT id, session_id, role, content, image, created_at
FROM messages
WHERE session_id = $1
ORDER BY created_at ASC, id ASC;
`
	rows, err := s.db.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 32)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Image, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
