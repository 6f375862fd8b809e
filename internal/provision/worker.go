// Package provision drives a freshly created project from creating to a
// terminal status by running the external scaffolding agent in the
// background.
package provision

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nivethaug/clawd-backend/internal/agent"
	"github.com/nivethaug/clawd-backend/internal/projects/domain"
	"github.com/nivethaug/clawd-backend/internal/projects/repository"
)

// Job identifies one provisioning attempt.
type Job struct {
	ProjectID   int64
	Path        string
	Name        string
	Description string
}

// Outcome is the advisory classification of a finished run. It feeds logs
// and the run registry; status semantics only ever see ready or failed.
type Outcome string

const (
	OutcomeReady     Outcome = "ready"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeFault     Outcome = "fault"
	OutcomeAbandoned Outcome = "abandoned"
)

func (o Outcome) Status() domain.Status {
	if o == OutcomeReady {
		return domain.StatusReady
	}
	return domain.StatusFailed
}

// Worker runs provisioning jobs. Each Start schedules one independent
// goroutine; workers share nothing but the store they write through.
type Worker struct {
	opener   repository.StatusOpener
	runner   agent.Runner
	registry *Registry
	deadline time.Duration
	ruleset  string

	// statusWriteTimeout bounds the terminal write so a wedged store cannot
	// pin the goroutine past the agent deadline.
	statusWriteTimeout time.Duration
}

func NewWorker(opener repository.StatusOpener, runner agent.Runner, registry *Registry, deadline time.Duration, ruleset string) *Worker {
	if deadline <= 0 {
		deadline = 20 * time.Minute
	}
	return &Worker{
		opener:             opener,
		runner:             runner,
		registry:           registry,
		deadline:           deadline,
		ruleset:            ruleset,
		statusWriteTimeout: 30 * time.Second,
	}
}

// Start schedules job on its own goroutine and returns immediately. The
// caller's request finishes long before the agent does; nothing the worker
// hits is ever surfaced back across this boundary.
func (w *Worker) Start(job Job) {
	go w.run(job)
}

func (w *Worker) run(job Job) {
	runID := uuid.NewString()
	started := time.Now()
	recordRunStarted()

	log.Printf("[info] component=provision run_id=%s project_id=%d path=%s starting", runID, job.ProjectID, job.Path)

	if w.registry != nil {
		if err := w.registry.MarkStarted(context.Background(), Record{
			RunID:     runID,
			ProjectID: job.ProjectID,
			StartedAt: started,
		}); err != nil {
			// Advisory only; the run proceeds without its record.
			log.Printf("[warn] component=provision run_id=%s registry start failed: %v", runID, err)
		}
	}

	outcome, detail := w.execute(job)
	recordRunFinished(outcome, time.Since(started))

	if err := w.writeStatus(job.ProjectID, outcome.Status()); err != nil {
		log.Printf("[error] component=provision run_id=%s project_id=%d status write failed: %v", runID, job.ProjectID, err)
	} else {
		log.Printf("[info] component=provision run_id=%s project_id=%d status=%s outcome=%s elapsed=%s",
			runID, job.ProjectID, outcome.Status(), outcome, time.Since(started).Round(time.Millisecond))
	}

	if w.registry != nil {
		if err := w.registry.MarkFinished(context.Background(), runID, outcome, detail); err != nil {
			log.Printf("[warn] component=provision run_id=%s registry finish failed: %v", runID, err)
		}
	}
}

// execute runs the agent under the deadline and classifies the result. It
// never panics out: any fault inside the run maps to OutcomeFault.
func (w *Worker) execute(job Job) (outcome Outcome, detail string) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFault
			detail = fmt.Sprintf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.deadline)
	defer cancel()

	res, err := w.runner.Run(ctx, agent.Instruction{
		ProjectID:   job.ProjectID,
		ProjectPath: job.Path,
		ProjectName: job.Name,
		Description: job.Description,
		RulesetPath: w.ruleset,
	})

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return OutcomeTimeout, fmt.Sprintf("agent exceeded %s deadline", w.deadline)
	case err != nil:
		return OutcomeFault, err.Error()
	case res.ExitCode != 0:
		return OutcomeFailed, fmt.Sprintf("agent exit code %d: %s", res.ExitCode, tail(res.Stderr, 512))
	default:
		return OutcomeReady, ""
	}
}

// writeStatus performs the single terminal write through a handle the
// worker opens for itself. The handle is released on every path.
func (w *Worker) writeStatus(projectID int64, status domain.Status) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.statusWriteTimeout)
	defer cancel()

	writer, err := w.opener.OpenStatusWriter(ctx)
	if err != nil {
		return fmt.Errorf("open status writer: %w", err)
	}
	defer func() {
		if cerr := writer.Close(ctx); cerr != nil {
			log.Printf("[warn] component=provision status writer close: %v", cerr)
		}
	}()

	if err := writer.UpdateStatus(ctx, projectID, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// tail returns at most n trailing bytes of s, for log-sized error detail.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
