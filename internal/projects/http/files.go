package http

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nivethaug/clawd-backend/internal/projects/domain"
	"github.com/nivethaug/clawd-backend/internal/workspace"
)

// projectPath resolves the project's folder for the file endpoints.
func (h *Handler) projectPath(c *gin.Context) (string, bool) {
	id, ok := projectID(c)
	if !ok {
		return "", false
	}

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return "", false
	}
	if p.Path == "" {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project has no folder"})
		return "", false
	}
	return p.Path, true
}

func (h *Handler) fileTree(c *gin.Context) {
	base, ok := h.projectPath(c)
	if !ok {
		return
	}

	tree, err := workspace.BuildFileTree(base)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "files": tree})
}

func filePath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}

func (h *Handler) readFile(c *gin.Context) {
	base, ok := h.projectPath(c)
	if !ok {
		return
	}

	fc, err := workspace.ReadFile(base, filePath(c))
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrTraversal):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid file path"})
		case errors.Is(err, workspace.ErrFileTooBig):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "file too large"})
		case errors.Is(err, os.ErrNotExist):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "file not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "file": fc})
}

type saveFileReq struct {
	Content string `json:"content"`
}

func (h *Handler) writeFile(c *gin.Context) {
	base, ok := h.projectPath(c)
	if !ok {
		return
	}

	var req saveFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	n, err := workspace.WriteFile(base, filePath(c), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrTraversal):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid file path"})
		case errors.Is(err, workspace.ErrBinaryWrite):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "cannot write binary files"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "size": n})
}
