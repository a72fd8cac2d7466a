package http

import "github.com/gin-gonic/gin"

// RegisterDashboard attaches the card upload and management routes.
func (h *Handler) RegisterDashboard(rg *gin.RouterGroup) {
	rg.GET("", h.manage)
	rg.POST("/save", h.save)
	rg.POST("/images/:slot", h.upload)
	rg.POST("/additional/:index/remove", h.removeImage)
	rg.POST("/publish", h.publish)
	rg.POST("/cancel", h.cancel)
	rg.POST("/cards/:id/edit", h.edit)
	rg.POST("/cards/:id/delete", h.delete)
}

// RegisterPublic attaches the public portfolio page and its event stream.
func (h *Handler) RegisterPublic(r gin.IRoutes) {
	r.GET("/portfolio", h.portfolio)
	r.GET("/portfolio/events", h.streamEvents)
}

// RegisterAPI attaches the JSON card listing.
func (h *Handler) RegisterAPI(rg *gin.RouterGroup) {
	rg.GET("/portfolio/cards", h.listCards)
}
