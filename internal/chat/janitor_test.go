package chat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, dir string, index map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(index)
	require.NoError(t, err)
	path := filepath.Join(dir, "sessions.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestJanitor_CleansMatchingEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeIndex(t, dir, map[string]any{
		"agent:main:openai-user:adapter-session-key-a": map[string]any{"sessionId": "tx-1"},
		"agent:main:openai-user:adapter-session-key-b": map[string]any{"sessionId": "tx-2"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tx-1.jsonl"), []byte("{}\n"), 0o644))

	n, err := NewJanitor(path).Cleanup([]string{"key-a"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(dir, "tx-1.jsonl"))
	assert.True(t, os.IsNotExist(err))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var index map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &index))
	assert.NotContains(t, index, "agent:main:openai-user:adapter-session-key-a")
	assert.Contains(t, index, "agent:main:openai-user:adapter-session-key-b")
}

func TestJanitor_MissingIndexIsFine(t *testing.T) {
	n, err := NewJanitor(filepath.Join(t.TempDir(), "sessions.json")).Cleanup([]string{"key-a"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJanitor_NoKeysNoWork(t *testing.T) {
	n, err := NewJanitor("/nonexistent/sessions.json").Cleanup(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJanitor_NoMatchLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeIndex(t, dir, map[string]any{
		"agent:main:openai-user:adapter-session-key-a": map[string]any{"sessionId": "tx-1"},
	})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	n, err := NewJanitor(path).Cleanup([]string{"other"})
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
