package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRole represents a user's role in the helpdesk
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleAgent    UserRole = "agent"
	RoleCustomer UserRole = "customer"
)

// TicketSource represents where a ticket was created from
type TicketSource string

const (
	SourcePublicForm TicketSource = "public_form"
	SourceDashboard  TicketSource = "dashboard"
)

// DeliveryStatus represents the outcome of a delivery attempt
type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "QUEUED"
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// User represents a helpdesk user (admin, agent or customer contact)
type User struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Email     string         `json:"email" gorm:"type:varchar(255);index"`
	Role      UserRole       `json:"role" gorm:"type:varchar(20);not null;default:'customer';index"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TicketType categorizes tickets (incident, request, etc.)
type TicketType struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name string    `json:"name" gorm:"type:varchar(100);not null"`
}

// Ticket represents a helpdesk ticket
type Ticket struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UID         int          `json:"uid" gorm:"autoIncrement;uniqueIndex"` // human-facing ticket number
	Subject     string       `json:"subject" gorm:"type:varchar(500);not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      string       `json:"status" gorm:"type:varchar(50);index"`
	Priority    string       `json:"priority" gorm:"type:varchar(50)"`
	Source      TicketSource `json:"source" gorm:"type:varchar(20);not null;default:'dashboard'"`

	// Owner (the customer the ticket belongs to). Nullable: public-form
	// tickets may arrive before a contact record exists.
	UserID *uuid.UUID `json:"userId" gorm:"type:uuid;index"`
	User   *User      `json:"user" gorm:"foreignKey:UserID"`

	// Assigned agent
	AssignedToID *uuid.UUID `json:"assignedToId" gorm:"type:uuid;index"`
	AssignedTo   *User      `json:"assignedTo" gorm:"foreignKey:AssignedToID"`

	TicketTypeID *uuid.UUID  `json:"ticketTypeId" gorm:"type:uuid"`
	TicketType   *TicketType `json:"ticketType" gorm:"foreignKey:TicketTypeID"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Setting is a generic name/value application setting
// (default_recipient, app_name, autoclose_value, ...)
type Setting struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name  string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Value string    `json:"value" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NotificationSetting is a feature toggle for one notification key
// (new_user, user_assigned, first_comment, ...)
type NotificationSetting struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Key     string    `json:"key" gorm:"type:varchar(100);not null;uniqueIndex"`
	Enabled bool      `json:"enabled" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EmailTemplate is a stored notification template, looked up by slug.
// Body placeholders use the flat {name} form.
type EmailTemplate struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug     string    `json:"slug" gorm:"type:varchar(255);not null;uniqueIndex"`
	Subject  string    `json:"subject" gorm:"type:varchar(500)"`
	Body     string    `json:"body" gorm:"type:text"`
	IsActive bool      `json:"isActive" gorm:"default:true"`
	IsSystem bool      `json:"isSystem" gorm:"default:false"` // system templates can't be deleted

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// DeliveryLog records the outcome of one delivery attempt to one recipient
type DeliveryLog struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EventKind      string         `json:"eventKind" gorm:"type:varchar(100);not null;index"`
	TemplateSlug   string         `json:"templateSlug" gorm:"type:varchar(255);index"`
	EntityID       *uuid.UUID     `json:"entityId" gorm:"type:uuid;index"`
	RecipientID    *uuid.UUID     `json:"recipientId" gorm:"type:uuid"`
	RecipientEmail string         `json:"recipientEmail" gorm:"type:varchar(255);index"`
	Subject        string         `json:"subject" gorm:"type:varchar(500)"`
	Status         DeliveryStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	ErrorMessage   string         `json:"errorMessage" gorm:"type:text"`
	Variables      datatypes.JSON `json:"variables" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies table names
func (User) TableName() string {
	return "users"
}

func (TicketType) TableName() string {
	return "ticket_types"
}

func (Ticket) TableName() string {
	return "tickets"
}

func (Setting) TableName() string {
	return "settings"
}

func (NotificationSetting) TableName() string {
	return "notification_settings"
}

func (EmailTemplate) TableName() string {
	return "email_templates"
}

func (DeliveryLog) TableName() string {
	return "delivery_logs"
}

// HasEmail reports whether the user has a usable contact address
func (u *User) HasEmail() bool {
	return u != nil && u.Email != ""
}

// OwnerID returns the ticket owner's id, or uuid.Nil when unowned
func (t *Ticket) OwnerID() uuid.UUID {
	if t.UserID == nil {
		return uuid.Nil
	}
	return *t.UserID
}
