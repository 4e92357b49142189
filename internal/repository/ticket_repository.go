package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"helpdesk-notification-service/internal/models"
)

// TicketRepository handles ticket database operations
type TicketRepository interface {
	// GetByID returns the ticket with its owner, assignee and type
	// preloaded, or nil when no such ticket exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("AssignedTo").
		Preload("TicketType").
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}
