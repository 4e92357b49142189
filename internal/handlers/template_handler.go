package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"helpdesk-notification-service/internal/models"
	"helpdesk-notification-service/internal/repository"
	"helpdesk-notification-service/internal/template"
)

// TemplateHandler handles email template CRUD requests
type TemplateHandler struct {
	templateRepo repository.TemplateRepository
	engine       *template.Engine
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateRepo repository.TemplateRepository) *TemplateHandler {
	return &TemplateHandler{
		templateRepo: templateRepo,
		engine:       template.NewEngine(),
	}
}

// CreateTemplateRequest represents a create template request
type CreateTemplateRequest struct {
	Slug    string `json:"slug" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// UpdateTemplateRequest represents an update template request
type UpdateTemplateRequest struct {
	Subject  *string `json:"subject"`
	Body     *string `json:"body"`
	IsActive *bool   `json:"isActive"`
}

// PreviewTemplateRequest carries sample variables for a rendering preview
type PreviewTemplateRequest struct {
	Variables map[string]string `json:"variables"`
}

// List returns all templates
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templateRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    templates,
	})
}

// Get returns a single template
func (h *TemplateHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	tmpl, err := h.templateRepo.GetByID(c.Request.Context(), id)
	if err != nil || tmpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tmpl,
	})
}

// Create creates a new template
func (h *TemplateHandler) Create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, _ := h.templateRepo.GetBySlug(c.Request.Context(), req.Slug)
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Template with this slug already exists"})
		return
	}

	tmpl := &models.EmailTemplate{
		Slug:     req.Slug,
		Subject:  req.Subject,
		Body:     req.Body,
		IsActive: true,
		IsSystem: false,
	}

	if err := h.templateRepo.Create(c.Request.Context(), tmpl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    tmpl,
	})
}

// Update updates a template's subject, body or active flag. The slug is
// immutable; coordinators look templates up by it.
func (h *TemplateHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	tmpl, err := h.templateRepo.GetByID(c.Request.Context(), id)
	if err != nil || tmpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Subject != nil {
		tmpl.Subject = *req.Subject
	}
	if req.Body != nil {
		tmpl.Body = *req.Body
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}

	if err := h.templateRepo.Update(c.Request.Context(), tmpl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tmpl,
	})
}

// Delete deletes a non-system template
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	tmpl, err := h.templateRepo.GetByID(c.Request.Context(), id)
	if err != nil || tmpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	if tmpl.IsSystem {
		c.JSON(http.StatusForbidden, gin.H{"error": "System templates cannot be deleted"})
		return
	}

	if err := h.templateRepo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Preview renders a template against caller-supplied sample variables
// without sending anything
func (h *TemplateHandler) Preview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	tmpl, err := h.templateRepo.GetByID(c.Request.Context(), id)
	if err != nil || tmpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	var req PreviewTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"subject": h.engine.Render(tmpl.Subject, req.Variables),
			"body":    h.engine.Render(tmpl.Body, req.Variables),
		},
	})
}
