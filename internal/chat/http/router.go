package http

import "github.com/gin-gonic/gin"

// Register attaches chat routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/chat", h.chat)
	rg.POST("/chat/stream", h.chatStream)
}
