package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/ledger"
	"github.com/farellandr/blocktix/internal/metrics"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	transitionRedeem   = "redeem"
	transitionTransfer = "transfer"
	transitionRefund   = "refund"
)

// LifecycleService applies state changes to tickets that were already
// issued. Every transition starts from active; used, transferred and
// refunded are terminal.
type LifecycleService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	log    *zap.Logger
	now    func() time.Time
}

func NewLifecycleService(db *gorm.DB, log *zap.Logger) *LifecycleService {
	return &LifecycleService{
		db:     db,
		ledger: ledger.New(db),
		log:    log.Named("lifecycle"),
		now:    time.Now,
	}
}

// TransferResult holds the original ticket, now terminal and pointing at
// the recipient, and the active replacement minted for the recipient.
type TransferResult struct {
	Original    models.Ticket `json:"original"`
	Replacement models.Ticket `json:"replacement"`
	Recipient   models.User   `json:"recipient"`
}

func (s *LifecycleService) Redeem(ctx context.Context, actor authz.Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.redeem(ctx, actor, ticketID)
	metrics.TrackTransition(transitionRedeem, transitionOutcome(err))
	return ticket, err
}

func (s *LifecycleService) redeem(ctx context.Context, actor authz.Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var ticket *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, err = loadTicket(tx, ticketID)
		if err != nil {
			return err
		}
		if !authz.Can(actor, authz.ActionRedeem, ticketResource(ticket)) {
			return forbidden("You do not have permission to redeem this ticket")
		}
		if err := requireActive(ticket.Status); err != nil {
			return err
		}

		usedAt := s.now().UTC()
		if err := transition(tx, ticket, map[string]interface{}{
			"status":  models.TicketUsed,
			"used_at": usedAt,
		}); err != nil {
			return err
		}
		ticket.Status = models.TicketUsed
		ticket.UsedAt = &usedAt
		return nil
	})
	if err != nil {
		return nil, storeFailure(s.log, "redeem", err)
	}

	s.log.Info("ticket redeemed",
		zap.String("ticket_id", ticketID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return ticket, nil
}

// Transfer hands a ticket to the user identified by toIdentifier (an email
// or a wallet address). Capacity is not touched.
func (s *LifecycleService) Transfer(ctx context.Context, actor authz.Actor, ticketID uuid.UUID, toIdentifier string) (*TransferResult, error) {
	result, err := s.transfer(ctx, actor, ticketID, toIdentifier)
	metrics.TrackTransition(transitionTransfer, transitionOutcome(err))
	return result, err
}

func (s *LifecycleService) transfer(ctx context.Context, actor authz.Actor, ticketID uuid.UUID, toIdentifier string) (*TransferResult, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var result *TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, err := loadTicket(tx, ticketID)
		if err != nil {
			return err
		}
		if !authz.Can(actor, authz.ActionTransfer, ticketResource(ticket)) {
			return forbidden("You do not have permission to transfer this ticket")
		}
		if err := requireActive(ticket.Status); err != nil {
			return err
		}

		recipient, err := findRecipient(tx, toIdentifier)
		if err != nil {
			return err
		}
		if recipient.ID == ticket.HolderID {
			return invalid("You already hold this ticket")
		}

		if err := transition(tx, ticket, map[string]interface{}{
			"status":    models.TicketTransferred,
			"holder_id": recipient.ID,
		}); err != nil {
			return err
		}
		ticket.Status = models.TicketTransferred
		ticket.HolderID = recipient.ID

		parentID := ticket.ID
		replacement := models.Ticket{
			TicketTypeID:   ticket.TicketTypeID,
			EventID:        ticket.EventID,
			HolderID:       recipient.ID,
			Status:         models.TicketActive,
			PricePaid:      ticket.PricePaid,
			TokenID:        ticket.TokenID,
			SeatLabel:      ticket.SeatLabel,
			ParentTicketID: &parentID,
			PurchasedAt:    ticket.PurchasedAt,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return fmt.Errorf("mint replacement ticket: %w", err)
		}

		recipientID := recipient.ID
		audit := models.Transaction{
			Type:           models.TransactionTransfer,
			Amount:         decimal.Zero,
			Quantity:       1,
			UserID:         actor.ID,
			CounterpartyID: &recipientID,
			EventID:        ticket.EventID,
			TicketTypeID:   ticket.TicketTypeID,
			TicketID:       &parentID,
			Status:         models.TransactionCompleted,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("record transfer: %w", err)
		}

		original := *ticket
		original.Holder = nil
		result = &TransferResult{Original: original, Replacement: replacement, Recipient: *recipient}
		return nil
	})
	if err != nil {
		return nil, storeFailure(s.log, "transfer", err)
	}

	s.log.Info("ticket transferred",
		zap.String("ticket_id", ticketID.String()),
		zap.String("replacement_id", result.Replacement.ID.String()),
		zap.String("from", actor.ID.String()),
		zap.String("to", result.Recipient.ID.String()),
	)
	return result, nil
}

// Refund cancels an active ticket and returns its unit to the ledger.
func (s *LifecycleService) Refund(ctx context.Context, actor authz.Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.refund(ctx, actor, ticketID)
	metrics.TrackTransition(transitionRefund, transitionOutcome(err))
	return ticket, err
}

func (s *LifecycleService) refund(ctx context.Context, actor authz.Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var ticket *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, err = loadTicket(tx, ticketID)
		if err != nil {
			return err
		}
		if !authz.Can(actor, authz.ActionRefund, ticketResource(ticket)) {
			return forbidden("You do not have permission to refund this ticket")
		}
		if err := requireActive(ticket.Status); err != nil {
			return err
		}

		if err := transition(tx, ticket, map[string]interface{}{
			"status": models.TicketRefunded,
		}); err != nil {
			return err
		}
		ticket.Status = models.TicketRefunded

		if err := s.ledger.WithTx(tx).Increment(ctx, ticket.TicketTypeID, 1); err != nil {
			switch {
			case errors.Is(err, ledger.ErrUnknownTicketType), errors.Is(err, ledger.ErrOverCapacity):
				s.log.Warn("refund did not replenish capacity",
					zap.String("ticket_id", ticket.ID.String()),
					zap.String("ticket_type_id", ticket.TicketTypeID.String()),
					zap.Error(err),
				)
			default:
				return err
			}
		}

		ticketRef := ticket.ID
		audit := models.Transaction{
			Type:         models.TransactionRefund,
			Amount:       ticket.PricePaid,
			Quantity:     1,
			UserID:       ticket.HolderID,
			EventID:      ticket.EventID,
			TicketTypeID: ticket.TicketTypeID,
			TicketID:     &ticketRef,
			Status:       models.TransactionCompleted,
		}
		if actor.ID != ticket.HolderID {
			actorID := actor.ID
			audit.CounterpartyID = &actorID
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("record refund: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeFailure(s.log, "refund", err)
	}

	s.log.Info("ticket refunded",
		zap.String("ticket_id", ticketID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return ticket, nil
}

// Get returns a ticket to its holder, the event's organizer or an admin.
func (s *LifecycleService) Get(ctx context.Context, actor authz.Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := loadTicket(s.db.WithContext(ctx), ticketID)
	if err != nil {
		return nil, storeFailure(s.log, "get ticket", err)
	}
	if !authz.Can(actor, authz.ActionViewTicket, ticketResource(ticket)) {
		return nil, notFound("Ticket not found")
	}
	return ticket, nil
}

// CodeTicket returns an active ticket its holder may present at the door.
func (s *LifecycleService) CodeTicket(ctx context.Context, actor authz.Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := loadTicket(s.db.WithContext(ctx), ticketID)
	if err != nil {
		return nil, storeFailure(s.log, "load ticket code", err)
	}
	if !authz.Can(actor, authz.ActionShowCode, ticketResource(ticket)) {
		return nil, forbidden("Only the ticket holder can show its code")
	}
	if err := requireActive(ticket.Status); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListHeld returns the tickets a user currently holds, newest first.
// Transferred originals are history and are left out.
func (s *LifecycleService) ListHeld(ctx context.Context, holderID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Preload("TicketType", unscoped).
		Preload("Event", unscoped).
		Where("holder_id = ? AND status <> ?", holderID, models.TicketTransferred).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, storeFailure(s.log, "list held tickets", err)
	}
	return tickets, nil
}

// CountHeld counts the tickets ListHeld would return.
func (s *LifecycleService) CountHeld(ctx context.Context, holderID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("holder_id = ? AND status <> ?", holderID, models.TicketTransferred).
		Count(&count).Error
	if err != nil {
		return 0, storeFailure(s.log, "count held tickets", err)
	}
	return count, nil
}

// ListForEvent returns the attendee list of an event for its organizer.
func (s *LifecycleService) ListForEvent(ctx context.Context, actor authz.Actor, eventID uuid.UUID) ([]models.Ticket, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Event not found")
		}
		return nil, storeFailure(s.log, "load event", err)
	}
	if !authz.Can(actor, authz.ActionViewAttendees, authz.Resource{OrganizerID: event.OrganizerID}) {
		return nil, forbidden("You do not have permission to view attendees of this event")
	}

	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Preload("Holder").
		Preload("TicketType", unscoped).
		Where("event_id = ? AND status <> ?", eventID, models.TicketTransferred).
		Order("purchased_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, storeFailure(s.log, "list event tickets", err)
	}
	return tickets, nil
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func loadTicket(tx *gorm.DB, ticketID uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := tx.Preload("Event", unscoped).Where("id = ?", ticketID).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Ticket not found")
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func ticketResource(ticket *models.Ticket) authz.Resource {
	res := authz.Resource{HolderID: ticket.HolderID}
	if ticket.Event != nil {
		res.OrganizerID = ticket.Event.OrganizerID
	}
	return res
}

func requireActive(status models.TicketStatus) error {
	if !status.Terminal() {
		return nil
	}
	switch status {
	case models.TicketUsed:
		return ErrAlreadyUsed
	case models.TicketTransferred:
		return newError(KindInvalidTransition, "This ticket has been transferred")
	case models.TicketRefunded:
		return newError(KindInvalidTransition, "This ticket has been refunded")
	}
	return ErrInvalidTransition
}

// transition moves an active ticket to a new state. The status predicate
// makes racing transitions on the same ticket admit a single winner.
func transition(tx *gorm.DB, ticket *models.Ticket, changes map[string]interface{}) error {
	result := tx.Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND holder_id = ?", ticket.ID, models.TicketActive, ticket.HolderID).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var current models.Ticket
	if err := tx.Select("status").Where("id = ?", ticket.ID).First(&current).Error; err != nil {
		return err
	}
	if err := requireActive(current.Status); err != nil {
		return err
	}
	return ErrConflict
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeError
	}
	return metrics.OutcomeRejected
}
