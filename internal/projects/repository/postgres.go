package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivethaug/clawd-backend/internal/projects/domain"
)

// PostgresStore persists projects in the shared master database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the projects table when missing.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS projects (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL DEFAULT 1,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    project_path TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT 'custom',
    status TEXT NOT NULL DEFAULT 'creating',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := s.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("init projects schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, userID int64, name, description string, kind domain.Kind) (*domain.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	const q = `
INSERT INTO projects (user_id, name, description, kind, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, name, description, project_path, kind, status, created_at;
`
	var p domain.Project
	err := s.db.QueryRow(ctx, q, userID, name, description, kind, domain.StatusCreating).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Path, &p.Kind, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Project, error) {
	const q = `
SELECT id, user_id, name, description, project_path, kind, status, created_at
FROM projects
WHERE id = $1;
`
	var p domain.Project
	err := s.db.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Path, &p.Kind, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.Project, error) {
	const q = `
SELECT id, user_id, name, description, project_path, kind, status, created_at
FROM projects
ORDER BY created_at DESC;
`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Path, &p.Kind, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdatePath(ctx context.Context, id int64, path string) error {
	const q = `UPDATE projects SET project_path = $2 WHERE id = $1;`
	tag, err := s.db.Exec(ctx, q, id, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	const q = `UPDATE projects SET status = $2 WHERE id = $1;`
	tag, err := s.db.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Status(ctx context.Context, id int64) (domain.Status, error) {
	const q = `SELECT status FROM projects WHERE id = $1;`
	var st domain.Status
	if err := s.db.QueryRow(ctx, q, id).Scan(&st); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return st, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM projects WHERE id = $1;`
	tag, err := s.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// OpenStatusWriter acquires a dedicated connection from the pool so a
// background worker never rides on a request's handle or transaction.
func (s *PostgresStore) OpenStatusWriter(ctx context.Context) (StatusWriter, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire status writer: %w", err)
	}
	return &pgStatusWriter{conn: conn}, nil
}

type pgStatusWriter struct {
	conn *pgxpool.Conn
}

func (w *pgStatusWriter) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	const q = `UPDATE projects SET status = $2 WHERE id = $1;`
	tag, err := w.conn.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (w *pgStatusWriter) Close(ctx context.Context) error {
	w.conn.Release()
	return nil
}
