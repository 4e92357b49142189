package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"helpdesk-notification-service/internal/models"
)

// UserRepository handles user database operations
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// First returns the earliest-created user in the system, or nil when
	// there are none. Used as the last rung of recipient fallback chains.
	First(ctx context.Context) (*models.User, error)
	// FirstByRole returns the earliest-created user holding a role,
	// or nil when no user has it.
	FirstByRole(ctx context.Context, role models.UserRole) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) First(ctx context.Context) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Order("created_at, id").First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FirstByRole(ctx context.Context, role models.UserRole) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at, id").
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
