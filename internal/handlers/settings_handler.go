package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"helpdesk-notification-service/internal/dispatch"
	"helpdesk-notification-service/internal/repository"
)

// knownKeys are the notification toggles the service acts on. Unknown keys
// are rejected rather than stored so a typo doesn't create a dead toggle.
var knownKeys = map[string]bool{
	dispatch.KeyNewUser:               true,
	dispatch.KeyUserAssigned:          true,
	dispatch.KeyFirstComment:          true,
	dispatch.KeyStatusPriorityChanges: true,
	dispatch.KeyTicketByCustomer:      true,
	dispatch.KeyTicketFromDashboard:   true,
	dispatch.KeyTicketResolved:        true,
}

// SettingsHandler handles notification toggle and app setting requests
type SettingsHandler struct {
	notifRepo   repository.NotificationSettingRepository
	settingRepo repository.SettingRepository
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(notifRepo repository.NotificationSettingRepository, settingRepo repository.SettingRepository) *SettingsHandler {
	return &SettingsHandler{notifRepo: notifRepo, settingRepo: settingRepo}
}

// UpdateToggleRequest represents a notification toggle update
type UpdateToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// DefaultRecipientRequest sets the fallback recipient for unowned tickets
type DefaultRecipientRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// ListToggles returns every notification toggle
func (h *SettingsHandler) ListToggles(c *gin.Context) {
	settings, err := h.notifRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notification settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateToggle switches one notification key on or off
func (h *SettingsHandler) UpdateToggle(c *gin.Context) {
	key := c.Param("key")
	if !knownKeys[key] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown notification key"})
		return
	}

	var req UpdateToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notifRepo.Upsert(c.Request.Context(), key, *req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification setting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"key":     key,
			"enabled": *req.Enabled,
		},
	})
}

// GetDefaultRecipient returns the fallback recipient user id, if set
func (h *SettingsHandler) GetDefaultRecipient(c *gin.Context) {
	setting, err := h.settingRepo.Get(c.Request.Context(), dispatch.SettingDefaultRecipient)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read setting"})
		return
	}

	value := ""
	if setting != nil {
		value = setting.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"userId": value,
		},
	})
}

// SetDefaultRecipient stores the fallback recipient user id
func (h *SettingsHandler) SetDefaultRecipient(c *gin.Context) {
	var req DefaultRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be a valid user id"})
		return
	}

	if err := h.settingRepo.Set(c.Request.Context(), dispatch.SettingDefaultRecipient, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store setting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
