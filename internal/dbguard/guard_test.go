package dbguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestGuard() *Guard {
	return New(Config{MasterName: "dreampilot"})
}

func TestExpectedDatabaseName(t *testing.T) {
	assert.Equal(t, "my_project_db", ExpectedDatabaseName("my-project"))
	assert.Equal(t, "shop_db", ExpectedDatabaseName("shop"))
	assert.Equal(t, "my_shop_db", ExpectedDatabaseName("My-Shop"))
	assert.Equal(t, "_db", ExpectedDatabaseName(""))
}

func TestValidate_MatchingName(t *testing.T) {
	g := newTestGuard()

	allowed, reason := g.ValidateProjectDatabaseDeletion("my-project", "my_project_db")
	assert.True(t, allowed)
	assert.Equal(t, "Validation passed", reason)
}

func TestValidate_NameMismatch(t *testing.T) {
	g := newTestGuard()

	allowed, reason := g.ValidateProjectDatabaseDeletion("my-project", "wrong_db")
	assert.False(t, allowed)
	assert.Contains(t, reason, "doesn't match expected pattern")
	assert.Contains(t, reason, "my_project_db")
}

func TestValidate_MasterProtectedEvenWhenPatternWouldFail(t *testing.T) {
	g := newTestGuard()

	// "anything_db" != "dreampilot" so rule 1 fires first, but master
	// protection must hold on its own when the literal name matches.
	allowed, _ := g.ValidateProjectDatabaseDeletion("anything", "dreampilot")
	assert.False(t, allowed)
	assert.True(t, g.IsMasterDatabase("dreampilot"))
}

func TestValidate_MasterProtectedWhenPatternMatches(t *testing.T) {
	// A project literally named so that its derived name lands in the
	// protected set must still be rejected.
	g := New(Config{MasterName: "dreampilot", Protected: []string{"dreampilot_db"}})

	allowed, reason := g.ValidateProjectDatabaseDeletion("dreampilot", "dreampilot_db")
	assert.False(t, allowed)
	assert.Contains(t, reason, "master database")
}

func TestValidate_SystemDatabases(t *testing.T) {
	g := New(Config{MasterName: "template0_x", Protected: []string{"none"}})

	for _, name := range []string{"information_schema", "pg_catalog", "template0", "TEMPLATE1"} {
		assert.True(t, g.IsSystemDatabase(name), "%s is a system database", name)
		allowed, _ := g.ValidateProjectDatabaseDeletion(name, name)
		assert.False(t, allowed, "system database %s must never be deletable", name)
	}
}

func TestValidate_EmptyProjectName(t *testing.T) {
	g := newTestGuard()

	allowed, _ := g.ValidateProjectDatabaseDeletion("", "_db")
	// Degenerate "_db" matches the empty-name derivation but is still not a
	// legitimate target.
	assert.False(t, allowed)

	allowed, _ = g.ValidateProjectDatabaseDeletion("", "anything_db")
	assert.False(t, allowed)
}

func TestIsMasterDatabase_CaseInsensitive(t *testing.T) {
	g := newTestGuard()

	assert.True(t, g.IsMasterDatabase("DREAMPILOT"))
	assert.True(t, g.IsMasterDatabase("Postgres"))
	assert.True(t, g.IsMasterDatabase("defaultdb"))
	assert.False(t, g.IsMasterDatabase("my_project_db"))
}

func TestValidate_CaseInsensitivePatternCheck(t *testing.T) {
	g := newTestGuard()

	// Derived names are produced by lowercasing, so a shouting database
	// name must not bypass the comparison.
	allowed, _ := g.ValidateProjectDatabaseDeletion("my-project", "MY_PROJECT_DB")
	assert.True(t, allowed)
}

func TestNew_AlternateProtectedSet(t *testing.T) {
	g := New(Config{MasterName: "corp_master", Protected: []string{"analytics"}})

	assert.True(t, g.IsMasterDatabase("corp_master"))
	assert.True(t, g.IsMasterDatabase("ANALYTICS"))
	assert.False(t, g.IsMasterDatabase("dreampilot"))
}
