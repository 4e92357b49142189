package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helpdesk-notification-service/internal/models"
)

// SettingRepository handles generic application settings
type SettingRepository interface {
	Get(ctx context.Context, name string) (*models.Setting, error)
	Set(ctx context.Context, name, value string) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Get returns the setting for a name, or nil when unset
func (r *settingRepository) Get(ctx context.Context, name string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Set(ctx context.Context, name, value string) error {
	setting := models.Setting{Name: name, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}

// NotificationSettingRepository handles the notification feature toggles
type NotificationSettingRepository interface {
	// GetAll returns a fresh snapshot of every toggle as key -> enabled.
	// Keys absent from the map are treated as disabled by the gate.
	GetAll(ctx context.Context) (map[string]bool, error)
	List(ctx context.Context) ([]models.NotificationSetting, error)
	Upsert(ctx context.Context, key string, enabled bool) error
}

type notificationSettingRepository struct {
	db *gorm.DB
}

// NewNotificationSettingRepository creates a new notification setting repository
func NewNotificationSettingRepository(db *gorm.DB) NotificationSettingRepository {
	return &notificationSettingRepository{db: db}
}

func (r *notificationSettingRepository) GetAll(ctx context.Context) (map[string]bool, error) {
	var settings []models.NotificationSetting
	if err := r.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, err
	}
	prefs := make(map[string]bool, len(settings))
	for _, s := range settings {
		prefs[s.Key] = s.Enabled
	}
	return prefs, nil
}

func (r *notificationSettingRepository) List(ctx context.Context) ([]models.NotificationSetting, error) {
	var settings []models.NotificationSetting
	err := r.db.WithContext(ctx).Order("key").Find(&settings).Error
	return settings, err
}

func (r *notificationSettingRepository) Upsert(ctx context.Context, key string, enabled bool) error {
	setting := models.NotificationSetting{Key: key, Enabled: enabled}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(&setting).Error
}
