// Package ledger holds the remaining-quantity counter of every ticket type.
//
// All writes are single conditional UPDATE statements checked by affected
// row count, so concurrent callers never observe or produce a negative
// remaining quantity regardless of isolation level.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrUnknownTicketType     = errors.New("ticket type not found")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrOverCapacity          = errors.New("remaining quantity would exceed allotment")
)

type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger whose statements run inside tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

func (l *Ledger) Remaining(ctx context.Context, ticketTypeID uuid.UUID) (int, error) {
	var ticketType models.TicketType
	err := l.db.WithContext(ctx).Select("remaining").Where("id = ?", ticketTypeID).First(&ticketType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUnknownTicketType
	}
	if err != nil {
		return 0, fmt.Errorf("read remaining: %w", err)
	}
	return ticketType.Remaining, nil
}

// Decrement takes amount units out of the ticket type, or nothing at all.
func (l *Ledger) Decrement(ctx context.Context, ticketTypeID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	result := l.db.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND remaining >= ?", ticketTypeID, amount).
		Update("remaining", gorm.Expr("remaining - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("decrement remaining: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return l.missOrShortage(ctx, ticketTypeID, ErrInsufficientInventory)
	}
	return nil
}

// Increment returns amount units to the ticket type. It never raises
// remaining above the configured quantity.
func (l *Ledger) Increment(ctx context.Context, ticketTypeID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	result := l.db.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND remaining + ? <= quantity", ticketTypeID, amount).
		Update("remaining", gorm.Expr("remaining + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("increment remaining: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return l.missOrShortage(ctx, ticketTypeID, ErrOverCapacity)
	}
	return nil
}

// Adjust sets a new allotment and shifts remaining by the same delta. Units
// already sold stay sold, so the new quantity may not go below them.
func (l *Ledger) Adjust(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidAmount
	}

	result := l.db.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND remaining + (? - quantity) >= 0", ticketTypeID, quantity).
		Updates(map[string]interface{}{
			"remaining": gorm.Expr("remaining + (? - quantity)", quantity),
			"quantity":  quantity,
		})
	if result.Error != nil {
		return fmt.Errorf("adjust quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return l.missOrShortage(ctx, ticketTypeID, ErrInsufficientInventory)
	}
	return nil
}

func (l *Ledger) missOrShortage(ctx context.Context, ticketTypeID uuid.UUID, shortage error) error {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.TicketType{}).Where("id = ?", ticketTypeID).Count(&count).Error; err != nil {
		return fmt.Errorf("check ticket type: %w", err)
	}
	if count == 0 {
		return ErrUnknownTicketType
	}
	return shortage
}
