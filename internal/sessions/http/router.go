package http

import "github.com/gin-gonic/gin"

// RegisterProject attaches the project-scoped session routes.
func (h *Handler) RegisterProject(rg *gin.RouterGroup) {
	rg.GET("/:id/sessions", h.list)
	rg.POST("/:id/sessions", h.create)
	rg.DELETE("/:id/sessions/:session_id", h.deleteScoped)
}

// RegisterSessions attaches the session-id routes.
func (h *Handler) RegisterSessions(rg *gin.RouterGroup) {
	rg.DELETE("/:session_id", h.delete)
	rg.GET("/:session_id/messages", h.listMessages)
}
