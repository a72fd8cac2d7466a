package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const corsMaxAge = 12 * time.Hour

// Registrar attaches JSON endpoints to the /api group.
type Registrar interface {
	RegisterAPI(rg *gin.RouterGroup)
}

type APIDeps struct {
	// CORSOrigins lists the allowed origins; "*" allows any.
	CORSOrigins []string
	Registrars  []Registrar
}

// RegisterAPI mounts the cross-origin JSON surface under /api.
func RegisterAPI(r *gin.Engine, dep APIDeps) *gin.RouterGroup {
	api := r.Group("/api", cors.New(CORSConfig(dep.CORSOrigins)))
	// preflight for routes that only declare GET/POST
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for _, reg := range dep.Registrars {
		reg.RegisterAPI(api)
	}
	return api
}

func CORSConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods("GET", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	cfg.AddExposeHeaders("Content-Length", "X-Request-Id")
	cfg.MaxAge = corsMaxAge
	return cfg
}
