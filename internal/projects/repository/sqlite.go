package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nivethaug/clawd-backend/internal/projects/domain"
)

// SQLiteStore is the single-node backend used when no Postgres server is
// configured. Same contract as PostgresStore; the database file doubles as
// the master database in SQLite mode.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL DEFAULT 1,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    project_path TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT 'custom',
    status TEXT NOT NULL DEFAULT 'creating',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init projects schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, userID int64, name, description string, kind domain.Kind) (*domain.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	const q = `
INSERT INTO projects (user_id, name, description, kind, status)
VALUES (?, ?, ?, ?, ?);
`
	res, err := s.db.ExecContext(ctx, q, userID, name, description, string(kind), string(domain.StatusCreating))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Project, error) {
	const q = `
SELECT id, user_id, name, description, project_path, kind, status, created_at
FROM projects
WHERE id = ?;
`
	var p domain.Project
	var created string
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Path, &p.Kind, &p.Status, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = parseSQLiteTime(created)
	return &p, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.Project, error) {
	const q = `
SELECT id, user_id, name, description, project_path, kind, status, created_at
FROM projects
ORDER BY created_at DESC, id DESC;
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		var p domain.Project
		var created string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Path, &p.Kind, &p.Status, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseSQLiteTime(created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) UpdatePath(ctx context.Context, id int64, path string) error {
	return s.exec(ctx, `UPDATE projects SET project_path = ? WHERE id = ?;`, path, id)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	return s.exec(ctx, `UPDATE projects SET status = ? WHERE id = ?;`, string(status), id)
}

func (s *SQLiteStore) Status(ctx context.Context, id int64) (domain.Status, error) {
	const q = `SELECT status FROM projects WHERE id = ?;`
	var st domain.Status
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&st); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return st, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM projects WHERE id = ?;`, id)
}

func (s *SQLiteStore) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
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
	return nil
}

// OpenStatusWriter checks out a dedicated connection for a background
// worker, mirroring the Postgres behavior.
func (s *SQLiteStore) OpenStatusWriter(ctx context.Context) (StatusWriter, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open status writer: %w", err)
	}
	return &sqliteStatusWriter{conn: conn}, nil
}

type sqliteStatusWriter struct {
	conn *sql.Conn
}

func (w *sqliteStatusWriter) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	res, err := w.conn.ExecContext(ctx, `UPDATE projects SET status = ? WHERE id = ?;`, string(status), id)
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
	return nil
}

func (w *sqliteStatusWriter) Close(ctx context.Context) error {
	return w.conn.Close()
}

// parseSQLiteTime handles the formats SQLite hands back for timestamp
// columns. A zero time is better than failing a read over formatting.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
