package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionTransfer TransactionType = "transfer"
	TransactionRefund   TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an append-only audit record. Tickets and ticket types stay
// authoritative for ownership and inventory.
type Transaction struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	Type           TransactionType   `gorm:"not null;index" json:"type"`
	Amount         decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Quantity       int               `gorm:"not null;default:1" json:"quantity"`
	UserID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	CounterpartyID *uuid.UUID        `gorm:"type:uuid" json:"counterparty_id,omitempty"`
	EventID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"event_id"`
	TicketTypeID   uuid.UUID         `gorm:"type:uuid" json:"ticket_type_id"`
	TicketID       *uuid.UUID        `gorm:"type:uuid" json:"ticket_id,omitempty"`
	Status         TransactionStatus `gorm:"not null;default:'completed'" json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	return
}

// AllModels is the AutoMigrate set.
func AllModels() []interface{} {
	return []interface{}{&Role{}, &User{}, &Event{}, &TicketType{}, &Ticket{}, &Transaction{}}
}
