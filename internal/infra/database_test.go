package infra

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivethaug/clawd-backend/internal/dbguard"
)

// unreachableDB returns a handle that would fail on first use; the policy
// paths under test must decide before touching the connection.
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestManager(t *testing.T) *Manager {
	return NewManager(unreachableDB(t), dbguard.New(dbguard.Config{MasterName: "dreampilot"}))
}

func TestUserName(t *testing.T) {
	assert.Equal(t, "my_project_user", userName("my-project"))
	assert.Equal(t, "shop_user", userName("Shop"))
}

func TestDrop_RejectedWithoutForce(t *testing.T) {
	m := newTestManager(t)

	// Empty project name never validates, so no SQL is attempted.
	res, err := m.Drop(context.Background(), "", false)
	require.NoError(t, err)
	assert.False(t, res.Dropped)
	assert.NotEmpty(t, res.Reason)
}

func TestDrop_ForceNeverOverridesMasterProtection(t *testing.T) {
	// A guard whose protected set contains the project-derived name: force
	// must still refuse.
	guard := dbguard.New(dbguard.Config{MasterName: "dreampilot", Protected: []string{"dreampilot_db"}})
	m := NewManager(unreachableDB(t), guard)

	res, err := m.Drop(context.Background(), "dreampilot", true)
	require.NoError(t, err)
	assert.False(t, res.Dropped)
	assert.Contains(t, res.Reason, "master database")
}

func TestCreate_RefusesReservedDerivedName(t *testing.T) {
	guard := dbguard.New(dbguard.Config{MasterName: "dreampilot", Protected: []string{"dreampilot_db"}})
	m := NewManager(unreachableDB(t), guard)

	_, err := m.Create(context.Background(), "dreampilot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved database name")
}

func TestNoop(t *testing.T) {
	var n Noop

	creds, err := n.Create(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, creds)

	res, err := n.Drop(context.Background(), "anything", true)
	require.NoError(t, err)
	assert.False(t, res.Dropped)
}
