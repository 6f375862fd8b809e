package repository

import (
	"context"

	"github.com/nivethaug/clawd-backend/internal/projects/domain"
)

// Store is the persistence contract for projects. Two implementations
// exist, selected by DB_BACKEND: Postgres (pgx pool) and SQLite.
type Store interface {
	Create(ctx context.Context, userID int64, name, description string, kind domain.Kind) (*domain.Project, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	UpdatePath(ctx context.Context, id int64, path string) error
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
	Status(ctx context.Context, id int64) (domain.Status, error)
	Delete(ctx context.Context, id int64) error
}

// StatusWriter is the narrow handle a provisioning worker opens for itself.
// It must never be the request's handle; the worker releases it on every
// exit path.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
	Close(ctx context.Context) error
}

// StatusOpener hands out fresh StatusWriter handles. Implemented by both
// backends on top of their connection pools.
type StatusOpener interface {
	OpenStatusWriter(ctx context.Context) (StatusWriter, error)
}
