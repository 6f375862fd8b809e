package provision

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nivethaug/clawd-backend/internal/projects/domain"
	"github.com/nivethaug/clawd-backend/internal/projects/repository"
)

// abandonGrace is added on top of the run deadline before an unfinished run
// record is treated as abandoned. Covers a process restart losing the
// goroutine that would have written the terminal status.
const abandonGrace = 2 * time.Minute

// Sweeper fails provisioning runs whose worker died without writing a
// terminal status. It only ever touches projects with an active run record,
// so kinds that never provision are never swept.
type Sweeper struct {
	registry *Registry
	opener   repository.StatusOpener
	deadline time.Duration
}

func NewSweeper(registry *Registry, opener repository.StatusOpener, deadline time.Duration) *Sweeper {
	return &Sweeper{registry: registry, opener: opener, deadline: deadline}
}

// Schedule registers the sweep on c every five minutes.
func (s *Sweeper) Schedule(c *cron.Cron) error {
	_, err := c.AddFunc("*/5 * * * *", func() {
		s.Sweep(context.Background())
	})
	return err
}

// Sweep runs one pass. Errors are logged and swallowed; the next pass
// retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	active, err := s.registry.ListActive(ctx)
	if err != nil {
		log.Printf("[warn] component=sweeper list active runs: %v", err)
		return
	}

	cutoff := time.Now().Add(-(s.deadline + abandonGrace))
	for _, rec := range active {
		if rec.StartedAt.After(cutoff) {
			continue
		}

		log.Printf("[warn] component=sweeper run_id=%s project_id=%d started_at=%s abandoned, marking failed",
			rec.RunID, rec.ProjectID, rec.StartedAt.Format(time.RFC3339))

		if err := s.failProject(ctx, rec.ProjectID); err != nil {
			log.Printf("[error] component=sweeper run_id=%s status write failed: %v", rec.RunID, err)
			continue
		}
		if err := s.registry.MarkFinished(ctx, rec.RunID, OutcomeAbandoned, "no terminal status before deadline+grace"); err != nil {
			log.Printf("[warn] component=sweeper run_id=%s registry finish failed: %v", rec.RunID, err)
		}
	}
}

func (s *Sweeper) failProject(ctx context.Context, projectID int64) error {
	writer, err := s.opener.OpenStatusWriter(ctx)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	return writer.UpdateStatus(ctx, projectID, domain.StatusFailed)
}
