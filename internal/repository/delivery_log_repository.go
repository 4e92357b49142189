package repository

import (
	"context"

	"gorm.io/gorm"

	"helpdesk-notification-service/internal/models"
)

// DeliveryLogRepository records delivery outcomes for observability
type DeliveryLogRepository interface {
	Create(ctx context.Context, log *models.DeliveryLog) error
	List(ctx context.Context, limit, offset int) ([]models.DeliveryLog, int64, error)
}

type deliveryLogRepository struct {
	db *gorm.DB
}

// NewDeliveryLogRepository creates a new delivery log repository
func NewDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &deliveryLogRepository{db: db}
}

func (r *deliveryLogRepository) Create(ctx context.Context, log *models.DeliveryLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *deliveryLogRepository) List(ctx context.Context, limit, offset int) ([]models.DeliveryLog, int64, error) {
	var logs []models.DeliveryLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DeliveryLog{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error
	return logs, total, err
}
