package http

import "github.com/gin-gonic/gin"

// Register attaches the New-Entry wizard routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.show)
	rg.POST("/save", h.save)
	rg.POST("/calculate", h.calculate)
	rg.POST("/preview", h.preview)
	rg.POST("/preview/close", h.closePreview)
	rg.POST("/process", h.process)
	rg.POST("/back", h.back)
	rg.POST("/confirm", h.confirm)
}
