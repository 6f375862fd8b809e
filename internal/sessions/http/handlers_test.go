package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nivethaug/clawd-backend/internal/sessions/repository"
)

type fakeCleaner struct {
	keys []string
}

func (f *fakeCleaner) Cleanup(sessionKeys []string) (int, error) {
	f.keys = append(f.keys, sessionKeys...)
	return len(sessionKeys), nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *repository.SQLiteStore, *fakeCleaner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewSQLiteStore(db)
	require.NoError(t, store.InitSchema(context.Background()))

	cleaner := &fakeCleaner{}
	h := NewHandler(store, cleaner)

	r := gin.New()
	h.RegisterProject(r.Group("/projects"))
	h.RegisterSessions(r.Group("/sessions"))
	return r, store, cleaner
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndListSessions(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/projects/1/sessions", `{"label":"My First Chat"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		OK      bool `json:"ok"`
		Session struct {
			ID         int64  `json:"id"`
			SessionKey string `json:"session_key"`
			Label      string `json:"label"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.OK)
	assert.Equal(t, "My First Chat", created.Session.Label)
	assert.True(t, strings.HasPrefix(created.Session.SessionKey, "project-1-my-first-chat-"))

	w = doJSON(t, r, http.MethodGet, "/projects/1/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Sessions, 1)
}

func TestCreateSessionRejectsEmptyLabel(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/projects/1/sessions", `{"label":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSessionCleansGateway(t *testing.T) {
	r, store, cleaner := newTestRouter(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1, "project-1-chat-abc", "chat")
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, sess.ID, "user", "hi", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, "/sessions/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"project-1-chat-abc"}, cleaner.keys)

	msgs, err := store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDeleteScopedChecksProject(t *testing.T) {
	r, store, _ := newTestRouter(t)

	_, err := store.Create(context.Background(), 2, "key-x", "other project")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, "/projects/1/sessions/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/projects/2/sessions/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListMessages(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, 1, "key-1", "chat")
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, sess.ID, "user", "hello", nil)
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, sess.ID, "assistant", "hi", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/sessions/1/messages", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "user", out.Messages[0].Role)

	w = doJSON(t, r, http.MethodGet, "/sessions/99/messages", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my-first-chat", slugify("My First Chat"))
	assert.Equal(t, "chat", slugify("???"))
	assert.Equal(t, "a-b", slugify("  A__B "))
}
