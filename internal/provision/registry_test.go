package provision

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivethaug/clawd-backend/internal/projects/domain"
)

func setupTestRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRegistry(client), mr
}

func TestRegistry_StartFinishRoundTrip(t *testing.T) {
	reg, _ := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "r1", ProjectID: 10}))

	rec, err := reg.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.ProjectID)
	assert.Nil(t, rec.FinishedAt)

	require.NoError(t, reg.MarkFinished(ctx, "r1", OutcomeReady, ""))

	rec, err = reg.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, rec.Outcome)
	require.NotNil(t, rec.FinishedAt)
}

func TestRegistry_GetUnknownRun(t *testing.T) {
	reg, _ := setupTestRegistry(t)

	_, err := reg.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRegistry_ListByProject(t *testing.T) {
	reg, _ := setupTestRegistry(t)
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "r1", ProjectID: 10, StartedAt: older}))
	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "r2", ProjectID: 10}))
	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "r3", ProjectID: 11}))

	recs, err := reg.ListByProject(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "r2", recs[0].RunID, "newest first")
	assert.Equal(t, "r1", recs[1].RunID)
}

func TestRegistry_ActiveTracking(t *testing.T) {
	reg, _ := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "r1", ProjectID: 1}))
	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "r2", ProjectID: 2}))
	require.NoError(t, reg.MarkFinished(ctx, "r1", OutcomeFailed, "agent exit code 1"))

	active, err := reg.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r2", active[0].RunID)
}

func TestSweeper_FailsAbandonedRuns(t *testing.T) {
	reg, _ := setupTestRegistry(t)
	ctx := context.Background()
	deadline := 10 * time.Minute

	stale := time.Now().Add(-(deadline + abandonGrace + time.Minute))
	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "stale", ProjectID: 10, StartedAt: stale}))
	require.NoError(t, reg.MarkStarted(ctx, Record{RunID: "fresh", ProjectID: 11}))

	opener := &fakeOpener{}
	s := NewSweeper(reg, opener, deadline)
	s.Sweep(ctx)

	writes := opener.Writes()
	require.Len(t, writes, 1, "only the abandoned run is swept")
	assert.Equal(t, int64(10), writes[0].projectID)
	assert.Equal(t, domain.StatusFailed, writes[0].status)
	assert.Equal(t, 1, opener.Closes())

	rec, err := reg.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAbandoned, rec.Outcome)

	active, err := reg.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].RunID)
}

func TestWorker_RecordsRunInRegistry(t *testing.T) {
	reg, _ := setupTestRegistry(t)
	opener := &fakeOpener{}
	w := NewWorker(opener, okRunner(), reg, time.Minute, "rule.md")

	w.run(Job{ProjectID: 77, Name: "shop"})

	recs, err := reg.ListByProject(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, OutcomeReady, recs[0].Outcome)
	require.NotNil(t, recs[0].FinishedAt)
}
