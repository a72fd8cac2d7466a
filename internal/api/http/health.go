package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = time.Second

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Redis     string    `json:"redis"`
	DB        string    `json:"db,omitempty"`
}

// StoreProbe reports data-store connectivity.
type StoreProbe interface {
	CheckConnection(ctx context.Context) bool
}

type HealthHandler struct {
	serviceName string
	version     string
	redis       *redis.Client
	store       StoreProbe
}

// NewHealthHandler builds the probe handler. store may be nil when no data
// store is configured.
func NewHealthHandler(serviceName, version string, rdb *redis.Client, store StoreProbe) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		redis:       rdb,
		store:       store,
	}
}

// HealthCheck answers 503 when Redis is down: sessions, wizards and the card
// store all live there. A down data store only degrades the dashboard stats.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	redisStatus := "up"
	if err := h.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "down"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	dbStatus := "disabled"
	if h.store != nil {
		if h.store.CheckConnection(ctx) {
			dbStatus = "up"
		} else {
			dbStatus = "down"
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Redis:     redisStatus,
		DB:        dbStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
