// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
)

const version = "1.0.0"

type HealthHandler struct {
	db    *gorm.DB
	queue queue.Queue
}

func NewHealthHandler(db *gorm.DB, q queue.Queue) *HealthHandler {
	return &HealthHandler{db: db, queue: q}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "healthy", "version": version}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = err.Error()
	}

	if pending, err := h.queue.Len(ctx); err == nil {
		body["renderQueue"] = pending
	}

	c.JSON(status, body)
}
