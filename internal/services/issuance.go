package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/chain"
	"github.com/farellandr/blocktix/internal/ledger"
	"github.com/farellandr/blocktix/internal/metrics"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IssuanceService is the only path that turns a purchase into tickets.
type IssuanceService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	log    *zap.Logger
	now    func() time.Time
}

func NewIssuanceService(db *gorm.DB, log *zap.Logger) *IssuanceService {
	return &IssuanceService{
		db:     db,
		ledger: ledger.New(db),
		log:    log.Named("issuance"),
		now:    time.Now,
	}
}

type PurchaseRequest struct {
	EventID      uuid.UUID
	TicketTypeID uuid.UUID
	BuyerID      uuid.UUID // defaults to the actor
	Quantity     int
}

type PurchaseResult struct {
	Tickets     []models.Ticket    `json:"tickets"`
	Transaction models.Transaction `json:"transaction"`
	Total       decimal.Decimal    `json:"total"`
}

// Purchase issues req.Quantity tickets or none. The ledger decrement, the
// ticket rows and the audit record commit together.
func (s *IssuanceService) Purchase(ctx context.Context, actor authz.Actor, req PurchaseRequest) (*PurchaseResult, error) {
	started := time.Now()

	result, err := s.purchase(ctx, actor, req)

	issued := 0
	if result != nil {
		issued = len(result.Tickets)
	}
	metrics.TrackPurchase(purchaseOutcome(err), issued, started)

	return result, err
}

func (s *IssuanceService) purchase(ctx context.Context, actor authz.Actor, req PurchaseRequest) (*PurchaseResult, error) {
	if !actor.Authenticated() {
		return nil, newError(KindUnauthorized, "You must be logged in to purchase tickets")
	}
	if req.BuyerID == uuid.Nil {
		req.BuyerID = actor.ID
	}
	if !authz.Can(actor, authz.ActionPurchase, authz.Resource{BuyerID: req.BuyerID}) {
		return nil, forbidden("You cannot purchase tickets for another user")
	}
	if req.Quantity < 1 {
		return nil, invalid("Quantity must be at least 1")
	}

	var result *PurchaseResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ?", req.EventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("Event not found")
			}
			return err
		}
		if event.Status != models.EventOnSale {
			return invalid("Tickets for this event are not on sale")
		}

		var ticketType models.TicketType
		if err := tx.Where("id = ?", req.TicketTypeID).First(&ticketType).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("Ticket type not found")
			}
			return err
		}
		if ticketType.EventID != event.ID {
			return invalid("Ticket type does not belong to this event")
		}
		if req.Quantity > ticketType.MaxPerOrder {
			return invalid(fmt.Sprintf("You can buy at most %d tickets per order", ticketType.MaxPerOrder))
		}

		var buyers int64
		if err := tx.Model(&models.User{}).Where("id = ?", req.BuyerID).Count(&buyers).Error; err != nil {
			return err
		}
		if buyers == 0 {
			return invalid("Buyer not found")
		}

		ledgerTx := s.ledger.WithTx(tx)
		if err := ledgerTx.Decrement(ctx, ticketType.ID, req.Quantity); err != nil {
			switch {
			case errors.Is(err, ledger.ErrInsufficientInventory):
				return s.soldOut(ctx, ledgerTx, ticketType)
			case errors.Is(err, ledger.ErrUnknownTicketType):
				return invalid("Ticket type not found")
			}
			return err
		}

		now := s.now().UTC()
		tickets := make([]models.Ticket, 0, req.Quantity)
		for i := 0; i < req.Quantity; i++ {
			ticket := models.Ticket{
				ID:           uuid.New(),
				TicketTypeID: ticketType.ID,
				EventID:      event.ID,
				HolderID:     req.BuyerID,
				Status:       models.TicketActive,
				PricePaid:    ticketType.Price,
				SeatLabel:    ticketType.Name,
				PurchasedAt:  now,
			}
			ticket.TokenID = chain.TokenID(ticket.ID)
			if err := tx.Create(&ticket).Error; err != nil {
				return fmt.Errorf("create ticket %d of %d: %w", i+1, req.Quantity, err)
			}
			tickets = append(tickets, ticket)
		}

		total := ticketType.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
		firstTicket := tickets[0].ID
		audit := models.Transaction{
			Type:         models.TransactionPurchase,
			Amount:       total,
			Quantity:     req.Quantity,
			UserID:       req.BuyerID,
			EventID:      event.ID,
			TicketTypeID: ticketType.ID,
			TicketID:     &firstTicket,
			Status:       models.TransactionCompleted,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("record purchase: %w", err)
		}

		result = &PurchaseResult{Tickets: tickets, Transaction: audit, Total: total}
		return nil
	})
	if err != nil {
		return nil, storeFailure(s.log, "purchase", err)
	}

	s.log.Info("tickets issued",
		zap.String("event_id", req.EventID.String()),
		zap.String("ticket_type_id", req.TicketTypeID.String()),
		zap.String("buyer_id", req.BuyerID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("total", result.Total.StringFixed(2)),
	)
	return result, nil
}

func (s *IssuanceService) soldOut(ctx context.Context, l *ledger.Ledger, ticketType models.TicketType) error {
	remaining, err := l.Remaining(ctx, ticketType.ID)
	if err != nil || remaining == 0 {
		return ErrSoldOut
	}
	return newError(KindSoldOut, fmt.Sprintf("Only %d %s tickets are left", remaining, ticketType.Name))
}

func purchaseOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrSoldOut):
		return metrics.OutcomeSoldOut
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeError
	}
	return metrics.OutcomeRejected
}
