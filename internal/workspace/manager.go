// Package workspace owns the on-disk project folders and the file access
// the code editor goes through.
package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var invalidNameChars = regexp.MustCompile(`[^\w\s-]`)

// Manager allocates and removes project folders under a base directory.
type Manager struct {
	baseDir string
}

func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create projects dir: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// SanitizeName makes a project name filesystem-safe.
func SanitizeName(name string) string {
	return strings.TrimSpace(invalidNameChars.ReplaceAllString(name, "_"))
}

// folderName is {id}_{sanitized}_{timestamp}; the timestamp keeps recreated
// projects from colliding with leftovers.
func (m *Manager) folderName(projectID int64, name string) string {
	return fmt.Sprintf("%d_%s_%s", projectID, SanitizeName(name), time.Now().Format("20060102_150405"))
}

// CreateProjectFolder allocates the folder and seeds a README. On any
// failure the folder is rolled back and an error returned; the caller then
// rolls back the database row.
func (m *Manager) CreateProjectFolder(projectID int64, name string) (string, error) {
	path := filepath.Join(m.baseDir, m.folderName(projectID, name))

	if err := os.Mkdir(path, 0o755); err != nil {
		return "", fmt.Errorf("create project folder: %w", err)
	}

	readme := fmt.Sprintf("openclaw project folder path: %s", path)
	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte(readme), 0o644); err != nil {
		if rerr := os.RemoveAll(path); rerr != nil {
			log.Printf("[warn] component=workspace rollback of %s failed: %v", path, rerr)
		}
		return "", fmt.Errorf("seed README.md: %w", err)
	}

	return path, nil
}

// DeleteProjectFolder removes the folder recursively. A missing folder is
// not an error.
func (m *Manager) DeleteProjectFolder(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete project folder: %w", err)
	}
	return nil
}
