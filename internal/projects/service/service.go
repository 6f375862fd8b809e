// Package service orchestrates the project lifecycle: folder allocation,
// provisioning hand-off, and teardown of everything a project owns.
package service

import (
	"context"
	"fmt"
	"log"

	"github.com/nivethaug/clawd-backend/internal/infra"
	"github.com/nivethaug/clawd-backend/internal/projects/domain"
	"github.com/nivethaug/clawd-backend/internal/projects/repository"
	"github.com/nivethaug/clawd-backend/internal/provision"
	sessionsrepo "github.com/nivethaug/clawd-backend/internal/sessions/repository"
	"github.com/nivethaug/clawd-backend/internal/workspace"
)

// Scheduler starts a provisioning run without blocking the caller.
type Scheduler interface {
	Start(job provision.Job)
}

// GatewayCleaner removes agent-gateway state for deleted sessions.
type GatewayCleaner interface {
	Cleanup(sessionKeys []string) (int, error)
}

// DeleteResult reports what a project deletion tore down.
type DeleteResult struct {
	Project  int64             `json:"project_id"`
	Sessions int               `json:"sessions_deleted"`
	Database *infra.DropResult `json:"database,omitempty"`
}

type Service struct {
	store     repository.Store
	sessions  sessionsrepo.Store
	folders   *workspace.Manager
	databases infra.Databases
	scheduler Scheduler
	cleaner   GatewayCleaner
}

func New(store repository.Store, sessions sessionsrepo.Store, folders *workspace.Manager,
	databases infra.Databases, scheduler Scheduler, cleaner GatewayCleaner) *Service {
	return &Service{
		store:     store,
		sessions:  sessions,
		folders:   folders,
		databases: databases,
		scheduler: scheduler,
		cleaner:   cleaner,
	}
}

// Create inserts the project, allocates its folder, and for kinds that
// provision hands the job to the scheduler. Scheduling never blocks: the
// project is returned in status creating and the worker reports the
// terminal status on its own.
func (s *Service) Create(ctx context.Context, userID int64, name, description string, kind domain.Kind) (*domain.Project, error) {
	p, err := s.store.Create(ctx, userID, name, description, kind)
	if err != nil {
		return nil, err
	}

	path, err := s.folders.CreateProjectFolder(p.ID, name)
	if err != nil {
		// Roll the row back so a half-created project never lingers.
		if delErr := s.store.Delete(ctx, p.ID); delErr != nil {
			log.Printf("[error] component=projects project_id=%d rollback failed: %v", p.ID, delErr)
		}
		return nil, fmt.Errorf("create project folder: %w", err)
	}

	if err := s.store.UpdatePath(ctx, p.ID, path); err != nil {
		if delErr := s.folders.DeleteProjectFolder(path); delErr != nil {
			log.Printf("[error] component=projects project_id=%d folder rollback failed: %v", p.ID, delErr)
		}
		if delErr := s.store.Delete(ctx, p.ID); delErr != nil {
			log.Printf("[error] component=projects project_id=%d rollback failed: %v", p.ID, delErr)
		}
		return nil, fmt.Errorf("record project path: %w", err)
	}
	p.Path = path

	if kind.RequiresProvisioning() {
		s.scheduler.Start(provision.Job{
			ProjectID:   p.ID,
			Path:        path,
			Name:        name,
			Description: description,
		})
		log.Printf("[info] component=projects project_id=%d kind=%s provisioning scheduled", p.ID, kind)
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Project, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Project, error) {
	return s.store.List(ctx)
}

// Status reports the current provisioning status. Unknown ids surface
// domain.ErrNotFound, never a default.
func (s *Service) Status(ctx context.Context, id int64) (domain.Status, error) {
	return s.store.Status(ctx, id)
}

// Delete tears down a project: sessions and their gateway state, the
// per-project database (validated, force is caller policy), the folder,
// and finally the row. Database teardown runs first so a validation
// rejection leaves the project fully intact.
func (s *Service) Delete(ctx context.Context, id int64, force bool) (*DeleteResult, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	drop, err := s.databases.Drop(ctx, p.Name, force)
	if err != nil {
		return nil, fmt.Errorf("drop project database: %w", err)
	}

	keys, err := s.sessions.PurgeProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("purge project sessions: %w", err)
	}
	if s.cleaner != nil && len(keys) > 0 {
		if n, err := s.cleaner.Cleanup(keys); err != nil {
			log.Printf("[warn] component=projects project_id=%d gateway session cleanup failed: %v", id, err)
		} else if n > 0 {
			log.Printf("[info] component=projects project_id=%d gateway sessions cleaned count=%d", id, n)
		}
	}

	if err := s.folders.DeleteProjectFolder(p.Path); err != nil {
		log.Printf("[warn] component=projects project_id=%d folder removal failed path=%s err=%v", id, p.Path, err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}

	log.Printf("[info] component=projects project_id=%d deleted sessions=%d db_dropped=%t", id, len(keys), drop.Dropped)
	return &DeleteResult{Project: id, Sessions: len(keys), Database: drop}, nil
}
