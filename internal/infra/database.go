// Package infra provisions and tears down per-project Postgres databases
// and roles over a maintenance connection. Every destructive path runs
// through dbguard first.
package infra

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"github.com/nivethaug/clawd-backend/internal/dbguard"
)

// Credentials are returned to the caller once at creation; the password is
// not retained anywhere else.
type Credentials struct {
	Database string
	User     string
	Password string
}

// DropResult reports what a teardown did, including the rejection reason
// when validation stopped it.
type DropResult struct {
	Dropped  bool
	Database string
	User     string
	Reason   string
}

// Databases manages per-project database lifecycles.
type Databases interface {
	Create(ctx context.Context, projectName string) (*Credentials, error)
	Drop(ctx context.Context, projectName string, force bool) (*DropResult, error)
}

// Manager is the Postgres implementation. The maintenance connection must
// belong to a role allowed to run CREATE/DROP DATABASE; it is separate from
// the application pool on purpose.
type Manager struct {
	db    *sql.DB
	guard *dbguard.Guard
}

func NewManager(db *sql.DB, guard *dbguard.Guard) *Manager {
	return &Manager{db: db, guard: guard}
}

// userName derives the per-project role the same way the database name is
// derived.
func userName(projectName string) string {
	return strings.ReplaceAll(strings.ToLower(projectName), "-", "_") + "_user"
}

func (m *Manager) Create(ctx context.Context, projectName string) (*Credentials, error) {
	dbName := dbguard.ExpectedDatabaseName(projectName)
	user := userName(projectName)

	if m.guard.IsMasterDatabase(dbName) || m.guard.IsSystemDatabase(dbName) {
		return nil, fmt.Errorf("project %q derives a reserved database name %q", projectName, dbName)
	}

	password, err := generatePassword()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}

	// DDL cannot take placeholders; identifiers are quoted instead.
	stmts := []string{
		fmt.Sprintf("CREATE USER %s WITH PASSWORD %s", pq.QuoteIdentifier(user), pq.QuoteLiteral(password)),
		fmt.Sprintf("CREATE DATABASE %s OWNER %s", pq.QuoteIdentifier(dbName), pq.QuoteIdentifier(user)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", pq.QuoteIdentifier(dbName), pq.QuoteIdentifier(user)),
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("provision database %s: %w", dbName, err)
		}
	}

	log.Printf("[info] component=infra database=%s user=%s provisioned", dbName, user)
	return &Credentials{Database: dbName, User: user, Password: password}, nil
}

// Drop validates and then removes the project's database and role.
//
// force bypasses the name-pattern and system checks but is logged at
// warning level, and it never bypasses master protection: there is no
// destructive operation permitted against the master name, override or not.
func (m *Manager) Drop(ctx context.Context, projectName string, force bool) (*DropResult, error) {
	dbName := dbguard.ExpectedDatabaseName(projectName)
	user := userName(projectName)
	res := &DropResult{Database: dbName, User: user}

	allowed, reason := m.guard.ValidateProjectDatabaseDeletion(projectName, dbName)
	res.Reason = reason

	if !allowed {
		if !force {
			log.Printf("[warn] component=infra database=%s deletion rejected: %s", dbName, reason)
			return res, nil
		}
		if m.guard.IsMasterDatabase(dbName) {
			log.Printf("[error] component=infra database=%s force deletion refused: master database", dbName)
			return res, nil
		}
		log.Printf("[warn] component=infra database=%s FORCE deletion requested, bypassing validation: %s", dbName, reason)
	}

	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", pq.QuoteIdentifier(dbName))); err != nil {
		return res, fmt.Errorf("drop database %s: %w", dbName, err)
	}
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("DROP USER IF EXISTS %s", pq.QuoteIdentifier(user))); err != nil {
		// The database is already gone; report the role as leftover rather
		// than failing the whole teardown.
		log.Printf("[warn] component=infra user=%s drop failed: %v", user, err)
	}

	res.Dropped = true
	log.Printf("[info] component=infra database=%s user=%s dropped", dbName, user)
	return res, nil
}

// Noop serves the SQLite backend, which has no per-project databases to
// manage.
type Noop struct{}

func (Noop) Create(ctx context.Context, projectName string) (*Credentials, error) {
	return nil, nil
}

func (Noop) Drop(ctx context.Context, projectName string, force bool) (*DropResult, error) {
	return &DropResult{Reason: "sqlite backend has no project databases"}, nil
}

func generatePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
