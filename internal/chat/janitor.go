package chat

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Janitor removes gateway-side session state after sessions are deleted
// from the backend. The gateway keeps an index file mapping full keys
// ("agent:main:openai-user:adapter-session-{key}") to transcript files.
type Janitor struct {
	indexPath string
}

func NewJanitor(indexPath string) *Janitor {
	return &Janitor{indexPath: indexPath}
}

// Cleanup drops index entries and transcripts for the given session keys.
// A missing index file means nothing to clean. Failures are reported but
// never block the caller; backend deletion already happened.
func (j *Janitor) Cleanup(sessionKeys []string) (int, error) {
	if len(sessionKeys) == 0 {
		return 0, nil
	}

	raw, err := os.ReadFile(j.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read session index: %w", err)
	}

	var index map[string]json.RawMessage
	if err := json.Unmarshal(raw, &index); err != nil {
		return 0, fmt.Errorf("parse session index: %w", err)
	}

	var doomed []string
	for key := range index {
		for _, sk := range sessionKeys {
			if strings.HasSuffix(key, "adapter-session-"+sk) {
				doomed = append(doomed, key)
			}
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	dir := filepath.Dir(j.indexPath)
	for _, key := range doomed {
		var entry struct {
			SessionID string `json:"sessionId"`
		}
		if json.Unmarshal(index[key], &entry) == nil && entry.SessionID != "" {
			transcript := filepath.Join(dir, entry.SessionID+".jsonl")
			if err := os.Remove(transcript); err != nil && !os.IsNotExist(err) {
				log.Printf("[warn] gateway transcript removal failed path=%s err=%v", transcript, err)
			}
		}
		delete(index, key)
	}

	updated, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode session index: %w", err)
	}
	if err := os.WriteFile(j.indexPath, updated, 0o644); err != nil {
		return 0, fmt.Errorf("write session index: %w", err)
	}
	return len(doomed), nil
}
