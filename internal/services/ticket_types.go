package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/ledger"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TicketTypeService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	log    *zap.Logger
}

func NewTicketTypeService(db *gorm.DB, log *zap.Logger) *TicketTypeService {
	return &TicketTypeService{db: db, ledger: ledger.New(db), log: log.Named("ticket_types")}
}

type TicketTypeInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	MaxPerOrder int
}

func (in *TicketTypeInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.MaxPerOrder == 0 {
		in.MaxPerOrder = models.DefaultMaxPerOrder
	}

	switch {
	case in.Name == "":
		return invalid("Ticket type name is required.")
	case in.Price.IsNegative():
		return invalid("Price cannot be negative.")
	case in.Quantity < 0:
		return invalid("Quantity cannot be negative.")
	case in.MaxPerOrder < 1:
		return invalid("Max per order must be at least 1.")
	}
	return nil
}

func (s *TicketTypeService) Create(ctx context.Context, actor authz.Actor, eventID uuid.UUID, in TicketTypeInput) (*models.TicketType, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var ticketType models.TicketType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.manageableEvent(tx, actor, eventID)
		if err != nil {
			return err
		}

		allotted, err := allottedQuantity(tx, event.ID, uuid.Nil)
		if err != nil {
			return err
		}
		if allotted+int64(in.Quantity) > int64(event.TotalCapacity) {
			return invalid(fmt.Sprintf("Ticket quantities would exceed the event capacity of %d.", event.TotalCapacity))
		}

		ticketType = models.TicketType{
			EventID:     event.ID,
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			Quantity:    in.Quantity,
			Remaining:   in.Quantity,
			MaxPerOrder: in.MaxPerOrder,
		}
		return tx.Create(&ticketType).Error
	})
	if err != nil {
		return nil, storeFailure(s.log, "create ticket type", err)
	}

	s.log.Info("ticket type created",
		zap.String("ticket_type_id", ticketType.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.Int("quantity", ticketType.Quantity),
	)
	return &ticketType, nil
}

// Update edits a ticket type. A quantity change moves remaining by the same
// delta through the ledger, so sold units stay accounted for.
func (s *TicketTypeService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, in TicketTypeInput) (*models.TicketType, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var ticketType models.TicketType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&ticketType).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Ticket type not found.")
			}
			return err
		}
		event, err := s.manageableEvent(tx, actor, ticketType.EventID)
		if err != nil {
			return err
		}

		allotted, err := allottedQuantity(tx, event.ID, ticketType.ID)
		if err != nil {
			return err
		}
		if allotted+int64(in.Quantity) > int64(event.TotalCapacity) {
			return invalid(fmt.Sprintf("Ticket quantities would exceed the event capacity of %d.", event.TotalCapacity))
		}

		if in.Quantity != ticketType.Quantity {
			if err := s.ledger.WithTx(tx).Adjust(ctx, ticketType.ID, in.Quantity); err != nil {
				if errors.Is(err, ledger.ErrInsufficientInventory) {
					return invalid("Quantity cannot be lower than the number of tickets already sold.")
				}
				return err
			}
		}

		if err := tx.Model(&ticketType).Updates(map[string]interface{}{
			"name":          in.Name,
			"description":   in.Description,
			"price":         in.Price,
			"max_per_order": in.MaxPerOrder,
		}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&ticketType).Error
	})
	if err != nil {
		return nil, storeFailure(s.log, "update ticket type", err)
	}
	return &ticketType, nil
}

// Delete removes a ticket type. Tickets already issued for it stay valid.
func (s *TicketTypeService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticketType models.TicketType
		if err := tx.Where("id = ?", id).First(&ticketType).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Ticket type not found.")
			}
			return err
		}
		if _, err := s.manageableEvent(tx, actor, ticketType.EventID); err != nil {
			return err
		}
		return tx.Delete(&ticketType).Error
	})
	if err != nil {
		return storeFailure(s.log, "delete ticket type", err)
	}
	return nil
}

func (s *TicketTypeService) manageableEvent(tx *gorm.DB, actor authz.Actor, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Event not found.")
		}
		return nil, err
	}
	if !authz.Can(actor, authz.ActionManageEvent, authz.Resource{OrganizerID: event.OrganizerID}) {
		return nil, forbidden("You do not have permission to manage ticket types for this event.")
	}
	return &event, nil
}
