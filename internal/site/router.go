package site

import (
	"github.com/gin-gonic/gin"

	"github.com/makstark/studio-web/internal/session"
)

// RegisterPublic attaches the landing pages, contact form and login.
func (h *Handler) RegisterPublic(r gin.IRoutes) {
	r.GET("/", h.home)
	r.GET("/about", h.about)
	r.GET("/services", h.services)
	r.GET("/contact", h.contact)
	r.POST("/contact", h.sendContact)

	r.GET(loginPath, session.RedirectIfAuthenticated(dashboardPath), h.loginPage)
	r.POST(loginPath, h.login)
	r.GET("/logout", h.logout)
	r.POST("/logout", h.logout)
}

// RegisterDashboard attaches the dashboard home and settings. The group is
// expected to be behind session.RequireAuth and Shell.
func (h *Handler) RegisterDashboard(rg *gin.RouterGroup) {
	rg.GET("", h.dashboard)
	rg.GET("/settings", h.settings)
	rg.POST("/settings", h.saveSettings)
}
