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

	"github.com/nivethaug/clawd-backend/internal/infra"
	"github.com/nivethaug/clawd-backend/internal/projects/repository"
	"github.com/nivethaug/clawd-backend/internal/projects/service"
	"github.com/nivethaug/clawd-backend/internal/provision"
	sessionsrepo "github.com/nivethaug/clawd-backend/internal/sessions/repository"
	"github.com/nivethaug/clawd-backend/internal/workspace"
)

type nopScheduler struct {
	jobs []provision.Job
}

func (n *nopScheduler) Start(job provision.Job) {
	n.jobs = append(n.jobs, job)
}

func newTestRouter(t *testing.T) (*gin.Engine, *nopScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewSQLiteStore(db)
	require.NoError(t, store.InitSchema(ctx))
	sessions := sessionsrepo.NewSQLiteStore(db)
	require.NoError(t, sessions.InitSchema(ctx))

	folders, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)

	sched := &nopScheduler{}
	svc := service.New(store, sessions, folders, infra.Noop{}, sched, nil)

	r := gin.New()
	NewHandler(svc).Register(r.Group("/projects"))
	return r, sched
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	r, sched := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/projects", `{"name":"my shop","description":"web shop","kind":"website"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Project struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
			Path   string `json:"project_path"`
		} `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "creating", created.Project.Status)
	assert.NotEmpty(t, created.Project.Path)
	assert.Len(t, sched.jobs, 1)

	w = do(t, r, http.MethodGet, "/projects/1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"creating"`)

	w = do(t, r, http.MethodGet, "/projects", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodDelete, "/projects/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/projects/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProjectValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/projects", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/projects", `{"name":"x","kind":"spaceship"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusUnknownProjectIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/projects/42/status", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/projects/abc/status", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/projects", `{"name":"site","kind":"custom"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPut, "/projects/1/files/src/index.html", `{"content":"<h1>hi</h1>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/projects/1/files/src/index.html", "")
	require.Equal(t, http.StatusOK, w.Code)
	var read struct {
		File struct {
			Content  string `json:"content"`
			IsBinary bool   `json:"is_binary"`
		} `json:"file"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &read))
	assert.Equal(t, "<h1>hi</h1>", read.File.Content)

	w = do(t, r, http.MethodGet, "/projects/1/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "index.html")

	w = do(t, r, http.MethodGet, "/projects/1/files/missing.txt", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPut, "/projects/1/files/logo.png", `{"content":"junk"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
