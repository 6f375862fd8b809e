package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nivethaug/clawd-backend/internal/provision"
)

// RunsHandler exposes the advisory run registry. Records here are
// diagnostics; project status stays authoritative in the store.
type RunsHandler struct {
	registry *provision.Registry
}

func NewRunsHandler(registry *provision.Registry) *RunsHandler {
	return &RunsHandler{registry: registry}
}

func (h *RunsHandler) listByProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return
	}

	runs, err := h.registry.ListByProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": runs})
}

func (h *RunsHandler) listActive(c *gin.Context) {
	runs, err := h.registry.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": runs})
}

// RegisterProject attaches the per-project runs route.
func (h *RunsHandler) RegisterProject(rg *gin.RouterGroup) {
	rg.GET("/:id/runs", h.listByProject)
}

// RegisterOps attaches the fleet-wide run routes.
func (h *RunsHandler) RegisterOps(rg *gin.RouterGroup) {
	rg.GET("/runs/active", h.listActive)
}
