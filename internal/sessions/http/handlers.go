package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nivethaug/clawd-backend/internal/sessions/domain"
	"github.com/nivethaug/clawd-backend/internal/sessions/repository"
)

// GatewayCleaner removes agent-gateway state for deleted sessions.
type GatewayCleaner interface {
	Cleanup(sessionKeys []string) (int, error)
}

// Handler serves session and message endpoints.
type Handler struct {
	store   repository.Store
	cleaner GatewayCleaner
}

func NewHandler(store repository.Store, cleaner GatewayCleaner) *Handler {
	return &Handler{store: store, cleaner: cleaner}
}

var slugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	slug := slugChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "chat"
	}
	return slug
}

// newSessionKey builds a stable per-conversation key the gateway can route
// on. The uuid suffix keeps repeated labels unique.
func newSessionKey(projectID int64, label string) string {
	return fmt.Sprintf("project-%d-%s-%s", projectID, slugify(label), uuid.NewString()[:8])
}

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	items, err := h.store.ListByProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": items})
}

type createReq struct {
	Label string `json:"label"`
}

func (h *Handler) create(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Label) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	label := strings.TrimSpace(req.Label)
	sess, err := h.store.Create(c.Request.Context(), id, newSessionKey(id, label), label)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "session": sess})
}

func (h *Handler) sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid session id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	h.deleteSession(c, id, 0)
}

// deleteScoped enforces that the session belongs to the project in the path.
func (h *Handler) deleteScoped(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	h.deleteSession(c, id, pid)
}

func (h *Handler) deleteSession(c *gin.Context, id, projectID int64) {
	ctx := c.Request.Context()

	sess, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if projectID != 0 && sess.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	if h.cleaner != nil {
		if n, err := h.cleaner.Cleanup([]string{sess.SessionKey}); err != nil {
			log.Printf("[warn] gateway session cleanup failed session_key=%s err=%v", sess.SessionKey, err)
		} else if n > 0 {
			log.Printf("[info] gateway sessions cleaned count=%d session_key=%s", n, sess.SessionKey)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listMessages(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.Get(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	items, err := h.store.ListMessages(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": items})
}
