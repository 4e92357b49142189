package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk-notification-service/internal/events"
	"helpdesk-notification-service/internal/repository"
)

// EventHandler accepts domain events from the other helpdesk services and
// hands them to the dispatch bus. It always responds 202: notification
// failures are the dispatcher's concern and never the emitter's.
type EventHandler struct {
	bus *events.Bus
}

// NewEventHandler creates a new event handler
func NewEventHandler(bus *events.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

// PublishEventRequest represents an incoming domain event
type PublishEventRequest struct {
	Kind    string         `json:"kind" binding:"required"`
	Payload events.Payload `json:"payload"`
}

// Publish routes one event to the dispatcher
func (h *EventHandler) Publish(c *gin.Context) {
	var req PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = events.Payload{}
	}

	h.bus.Publish(c.Request.Context(), events.Event{
		Kind:    events.Kind(req.Kind),
		Payload: payload,
	})

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"kind":    req.Kind,
	})
}

// DeliveryLogHandler exposes the delivery audit trail
type DeliveryLogHandler struct {
	logRepo repository.DeliveryLogRepository
}

// NewDeliveryLogHandler creates a new delivery log handler
func NewDeliveryLogHandler(logRepo repository.DeliveryLogRepository) *DeliveryLogHandler {
	return &DeliveryLogHandler{logRepo: logRepo}
}

// List returns recent delivery attempts, newest first
func (h *DeliveryLogHandler) List(c *gin.Context) {
	limit := parseIntWithDefault(c.Query("limit"), 50)
	offset := parseIntWithDefault(c.Query("offset"), 0)

	logs, total, err := h.logRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list delivery logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  total,
		},
	})
}
