package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultMaxPerOrder = 10

// TicketType is a priced category of ticket. Remaining is the ledger
// counter and is only changed through the ledger package.
type TicketType struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	EventID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"event_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Remaining   int             `gorm:"not null" json:"remaining"`
	MaxPerOrder int             `gorm:"not null;default:10" json:"max_per_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (ticketType *TicketType) BeforeCreate(tx *gorm.DB) (err error) {
	if ticketType.ID == uuid.Nil {
		ticketType.ID = uuid.New()
	}
	return
}
