package repository

import (
	"context"

	"github.com/nivethaug/clawd-backend/internal/sessions/domain"
)

// Store persists chat sessions and their messages. Both the Postgres and
// SQLite backends satisfy it.
type Store interface {
	Create(ctx context.Context, projectID int64, sessionKey, label string) (*domain.Session, error)
	Get(ctx context.Context, id int64) (*domain.Session, error)
	GetByKey(ctx context.Context, sessionKey string) (*domain.Session, error)
	ListByProject(ctx context.Context, projectID int64) ([]domain.Session, error)
	Touch(ctx context.Context, id int64) error

	// Delete removes a session and all of its messages.
	Delete(ctx context.Context, id int64) error
	// PurgeProject removes every session of a project together with the
	// messages, returning the deleted session keys for gateway cleanup.
	PurgeProject(ctx context.Context, projectID int64) ([]string, error)

	AddMessage(ctx context.Context, sessionID int64, role, content string, image *string) (*domain.Message, error)
	ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error)
}
