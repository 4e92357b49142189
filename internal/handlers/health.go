package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"helpdesk-notification-service/internal/queue"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db   *gorm.DB
	nats *queue.Client
}

// NewHealthHandler creates a new health handler. nats may be nil when the
// service runs without a queue.
func NewHealthHandler(db *gorm.DB, nats *queue.Client) *HealthHandler {
	return &HealthHandler{db: db, nats: nats}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "notification-service",
	})
}

// Livez returns liveness status
func (h *HealthHandler) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Readyz returns readiness status
func (h *HealthHandler) Readyz(c *gin.Context) {
	status := "ready"
	httpStatus := http.StatusOK

	checks := make(map[string]string)

	// Check database
	sqlDB, err := h.db.DB()
	if err != nil {
		checks["database"] = "error: " + err.Error()
		status = "not ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := sqlDB.Ping(); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "not ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "connected"
	}

	// NATS is optional; report it without failing readiness
	if h.nats != nil {
		if h.nats.IsConnected() {
			checks["nats"] = "connected"
		} else {
			checks["nats"] = "disconnected"
		}
	}

	c.JSON(httpStatus, gin.H{
		"status": status,
		"checks": checks,
	})
}
