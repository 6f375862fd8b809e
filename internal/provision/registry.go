package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	runKeyPrefix        = "provision:run:"     // run record: provision:run:{run_id}
	projectRunSetPrefix = "provision:project:" // run ids per project: provision:project:{project_id}
	activeRunSetKey     = "provision:active"   // run ids still in flight
	runTTL              = 7 * 24 * time.Hour
)

// Record is the diagnostic trail of one provisioning run. It is advisory:
// nothing here ever feeds back into status semantics.
type Record struct {
	RunID      string     `json:"run_id"`
	ProjectID  int64      `json:"project_id"`
	Outcome    Outcome    `json:"outcome,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Registry keeps run records in Redis with a TTL so operators can inspect
// recent provisioning activity per project.
type Registry struct {
	client *redis.Client
}

func NewRegistry(client *redis.Client) *Registry {
	return &Registry{client: client}
}

// MarkStarted stores the record and indexes it as active.
func (r *Registry) MarkStarted(ctx context.Context, rec Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.runKey(rec.RunID), data, runTTL)
	pipe.SAdd(ctx, r.projectKey(rec.ProjectID), rec.RunID)
	pipe.Expire(ctx, r.projectKey(rec.ProjectID), runTTL)
	pipe.SAdd(ctx, activeRunSetKey, rec.RunID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store run record: %w", err)
	}
	return nil
}

// MarkFinished closes the record and drops it from the active index.
func (r *Registry) MarkFinished(ctx context.Context, runID string, outcome Outcome, detail string) error {
	rec, err := r.Get(ctx, runID)
	if err != nil {
		return err
	}

	now := time.Now()
	rec.Outcome = outcome
	rec.Detail = detail
	rec.FinishedAt = &now

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.runKey(runID), data, runTTL)
	pipe.SRem(ctx, activeRunSetKey, runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("finish run record: %w", err)
	}
	return nil
}

// Get fetches a single run record.
func (r *Registry) Get(ctx context.Context, runID string) (*Record, error) {
	data, err := r.client.Get(ctx, r.runKey(runID)).Result()
	if err == redis.Nil {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &rec, nil
}

// ListByProject returns all retained run records for a project, newest
// first.
func (r *Registry) ListByProject(ctx context.Context, projectID int64) ([]Record, error) {
	ids, err := r.client.SMembers(ctx, r.projectKey(projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list project runs: %w", err)
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if err == ErrRunNotFound {
			// Record expired before its index entry; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// ListActive returns the records of runs that have started but not
// finished. The sweeper uses it to find abandoned runs after a restart.
func (r *Registry) ListActive(ctx context.Context) ([]Record, error) {
	ids, err := r.client.SMembers(ctx, activeRunSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active runs: %w", err)
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if err == ErrRunNotFound {
			// Expired record with a stale index entry; clean it up.
			r.client.SRem(ctx, activeRunSetKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *Registry) runKey(runID string) string {
	return runKeyPrefix + runID
}

func (r *Registry) projectKey(projectID int64) string {
	return fmt.Sprintf("%s%d", projectRunSetPrefix, projectID)
}
