package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voyago/booking-core/pkg/database"
	"github.com/voyago/booking-core/pkg/redis"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db    *database.PostgresDB
	redis *redis.Client
}

func NewHealthHandler(db *database.PostgresDB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health is the liveness probe. It answers as long as the process serves.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type componentCheck func(context.Context) error

// Ready is the readiness probe. A dependency that was never wired is
// reported but does not fail readiness; a wired dependency that fails its
// check does.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]componentCheck{
		"database": nil,
		"redis":    nil,
	}
	if h.db != nil {
		checks["database"] = h.db.HealthCheck
	}
	if h.redis != nil {
		checks["redis"] = h.redis.HealthCheck
	}

	components := make(map[string]string, len(checks))
	ready := true
	for name, check := range checks {
		switch {
		case check == nil:
			components[name] = "not configured"
		case check(ctx) != nil:
			components[name] = "unhealthy"
			ready = false
		default:
			components[name] = "healthy"
		}
	}

	resp := ReadyResponse{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
	code := http.StatusOK
	if !ready {
		resp.Status = "not ready"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
