package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.GET("/:id/status", h.status)
	rg.DELETE("/:id", h.delete)

	rg.GET("/:id/files", h.fileTree)
	rg.GET("/:id/files/*path", h.readFile)
	rg.PUT("/:id/files/*path", h.writeFile)
}
