package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"helpdesk-notification-service/internal/models"
)

// TemplateRepository handles email template database operations
type TemplateRepository interface {
	Create(ctx context.Context, template *models.EmailTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailTemplate, error)
	GetBySlug(ctx context.Context, slug string) (*models.EmailTemplate, error)
	List(ctx context.Context) ([]models.EmailTemplate, error)
	Update(ctx context.Context, template *models.EmailTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, template *models.EmailTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

// GetBySlug returns the active template for a slug, or nil when no such
// template exists. A missing template is an expected outcome, not an error.
func (r *templateRepository) GetBySlug(ctx context.Context, slug string) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = true", slug).
		First(&template).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) List(ctx context.Context) ([]models.EmailTemplate, error) {
	var templates []models.EmailTemplate
	err := r.db.WithContext(ctx).Order("slug").Find(&templates).Error
	return templates, err
}

func (r *templateRepository) Update(ctx context.Context, template *models.EmailTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var template models.EmailTemplate
	if err := r.db.WithContext(ctx).First(&template, id).Error; err != nil {
		return err
	}
	if template.IsSystem {
		return gorm.ErrRecordNotFound // system templates can't be deleted
	}
	return r.db.WithContext(ctx).Delete(&models.EmailTemplate{}, id).Error
}
