package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketActive      TicketStatus = "active"
	TicketUsed        TicketStatus = "used"
	TicketTransferred TicketStatus = "transferred"
	TicketRefunded    TicketStatus = "refunded"
)

// Terminal reports whether no further lifecycle transition is allowed.
func (s TicketStatus) Terminal() bool {
	return s != TicketActive
}

type Ticket struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TicketTypeID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"ticket_type_id"`
	TicketType     *TicketType     `json:"ticket_type,omitempty"`
	EventID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"event_id"`
	Event          *Event          `json:"event,omitempty"`
	HolderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"holder_id"`
	Holder         *User           `gorm:"foreignKey:HolderID" json:"holder,omitempty"`
	Status         TicketStatus    `gorm:"not null;default:'active';index" json:"status"`
	PricePaid      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_paid"`
	TokenID        string          `gorm:"index" json:"token_id,omitempty"`
	SeatLabel      string          `json:"seat_label,omitempty"`
	ParentTicketID *uuid.UUID      `gorm:"type:uuid;index" json:"parent_ticket_id,omitempty"`
	PurchasedAt    time.Time       `gorm:"not null" json:"purchased_at"`
	UsedAt         *time.Time      `json:"used_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}
