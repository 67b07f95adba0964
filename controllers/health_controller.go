package controllers

import (
	"context"
	"net/http"
	"time"

	"venuehub/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

type HealthController struct {
	db      *mongo.Database
	redis   *redis.Client
	version string
}

func NewHealthController(db *mongo.Database, redisClient *redis.Client, version string) *HealthController {
	return &HealthController{
		db:      db,
		redis:   redisClient,
		version: version,
	}
}

// Health reports service liveness and the state of its backing stores
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	services := map[string]string{}

	if err := hc.db.Client().Ping(ctx, nil); err != nil {
		services["mongodb"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		services["mongodb"] = "healthy"
	}

	if hc.redis != nil {
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			services["redis"] = "healthy"
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  services,
		Version:   hc.version,
	})
}
