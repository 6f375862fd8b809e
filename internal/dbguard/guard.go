// Package dbguard decides whether a named database may be destroyed.
// Every destructive database operation goes through it first.
package dbguard

import "strings"

// System catalogs and template databases are never deletable no matter what
// the caller derived them from.
var systemDatabases = []string{"information_schema", "pg_catalog", "template0", "template1"}

// Config carries the protected-name set. It is built once at startup and
// passed in rather than kept as package state, so tests can run with
// alternate protected sets.
type Config struct {
	// MasterName is the configured master database (DB_NAME).
	MasterName string
	// Protected lists additional never-deletable names. Defaults cover the
	// product name plus the engine/provider defaults.
	Protected []string
}

// Guard is a pure decision component; it performs no I/O and never logs.
type Guard struct {
	protected []string
}

// New builds a Guard from cfg. The configured master name is always part of
// the protected set, followed by cfg.Protected, or the default set when
// none is given.
func New(cfg Config) *Guard {
	protected := make([]string, 0, 4)
	if cfg.MasterName != "" {
		protected = append(protected, cfg.MasterName)
	}
	if len(cfg.Protected) > 0 {
		protected = append(protected, cfg.Protected...)
	} else {
		protected = append(protected, "dreampilot", "defaultdb", "postgres")
	}
	return &Guard{protected: protected}
}

// ExpectedDatabaseName derives the database name a project is entitled to:
// lowercase, hyphens to underscores, suffixed _db.
func ExpectedDatabaseName(projectName string) string {
	return strings.ReplaceAll(strings.ToLower(projectName), "-", "_") + "_db"
}

// IsMasterDatabase reports whether name belongs to the protected set,
// case-insensitively. Used wherever an operation must refuse to target the
// master database regardless of naming pattern.
func (g *Guard) IsMasterDatabase(name string) bool {
	for _, p := range g.protected {
		if strings.EqualFold(name, p) {
			return true
		}
	}
	return false
}

// IsSystemDatabase reports whether name is an engine catalog or template
// database, case-insensitively.
func (g *Guard) IsSystemDatabase(name string) bool {
	for _, s := range systemDatabases {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// ValidateProjectDatabaseDeletion decides whether dbName may be dropped on
// behalf of projectName. Rejection is an expected outcome, so the result is
// a value, never an error.
//
// Rule 1: dbName must equal the name derived from projectName. Both sides
// are lowercased first so case differences cannot bypass the check.
// Rule 2: the protected set is off limits even when a project name happens
// to derive into it.
// Rule 3: engine catalogs and templates are off limits.
func (g *Guard) ValidateProjectDatabaseDeletion(projectName, dbName string) (bool, string) {
	if strings.TrimSpace(projectName) == "" {
		return false, "Project name is empty; refusing to derive a database name from it."
	}

	expected := ExpectedDatabaseName(projectName)
	if strings.ToLower(dbName) != expected {
		return false, "Database name '" + dbName + "' doesn't match expected pattern '" + expected + "' for project '" + projectName + "'"
	}

	if g.IsMasterDatabase(dbName) {
		return false, "Cannot delete master database '" + dbName + "'. Master database is protected from deletion."
	}

	if g.IsSystemDatabase(dbName) {
		return false, "Cannot delete system database '" + dbName + "'."
	}

	return true, "Validation passed"
}
