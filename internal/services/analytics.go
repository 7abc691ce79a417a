package services

import (
	"context"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAnalyticsService(db *gorm.DB, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{db: db, log: log.Named("analytics")}
}

type Dashboard struct {
	GrossRevenue   decimal.Decimal `json:"gross_revenue"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	NetRevenue     decimal.Decimal `json:"net_revenue"`
	TicketsSold    int64           `json:"tickets_sold"`
	TicketsUsed    int64           `json:"tickets_used"`
	Events         int64           `json:"events"`
	ActiveEvents   int64           `json:"active_events"`
	TotalAttendees int64           `json:"total_attendees"`
	TicketsByType  []TypeCount     `json:"tickets_by_type"`
}

// TypeCount is the number of tickets sold under one ticket type name.
type TypeCount struct {
	Name    string `json:"name"`
	Tickets int64  `json:"tickets"`
}

// Dashboard summarizes sales for the actor's events; admins see every
// event. Replacement tickets minted by transfers are not counted as sold.
func (s *AnalyticsService) Dashboard(ctx context.Context, actor authz.Actor) (*Dashboard, error) {
	if !authz.Can(actor, authz.ActionViewDashboard, authz.Resource{}) {
		return nil, forbidden("Only organizers can view the dashboard.")
	}

	db := s.db.WithContext(ctx)
	scope := func(tx *gorm.DB) *gorm.DB {
		if actor.IsAdmin() {
			return tx
		}
		owned := db.Model(&models.Event{}).Select("id").Where("organizer_id = ?", actor.ID)
		return tx.Where("event_id IN (?)", owned)
	}

	var d Dashboard
	var err error

	if d.GrossRevenue, err = s.sumTransactions(db, scope, models.TransactionPurchase); err != nil {
		return nil, storeFailure(s.log, "sum purchases", err)
	}
	if d.RefundedAmount, err = s.sumTransactions(db, scope, models.TransactionRefund); err != nil {
		return nil, storeFailure(s.log, "sum refunds", err)
	}
	d.NetRevenue = d.GrossRevenue.Sub(d.RefundedAmount)

	if err := db.Model(&models.Ticket{}).Scopes(scope).
		Where("parent_ticket_id IS NULL").
		Count(&d.TicketsSold).Error; err != nil {
		return nil, storeFailure(s.log, "count tickets sold", err)
	}
	if err := db.Model(&models.Ticket{}).Scopes(scope).
		Where("status = ?", models.TicketUsed).
		Count(&d.TicketsUsed).Error; err != nil {
		return nil, storeFailure(s.log, "count tickets used", err)
	}
	if err := db.Model(&models.Ticket{}).Scopes(scope).
		Where("status IN ?", []models.TicketStatus{models.TicketActive, models.TicketUsed}).
		Distinct("holder_id").
		Count(&d.TotalAttendees).Error; err != nil {
		return nil, storeFailure(s.log, "count attendees", err)
	}

	if d.TicketsByType, err = s.ticketsByType(db, actor); err != nil {
		return nil, storeFailure(s.log, "count tickets by type", err)
	}

	events := db.Model(&models.Event{})
	if !actor.IsAdmin() {
		events = events.Where("organizer_id = ?", actor.ID)
	}
	events = events.Session(&gorm.Session{})
	if err := events.Count(&d.Events).Error; err != nil {
		return nil, storeFailure(s.log, "count events", err)
	}
	if err := events.Where("status IN ?", []models.EventStatus{models.EventOnSale, models.EventUpcoming}).
		Count(&d.ActiveEvents).Error; err != nil {
		return nil, storeFailure(s.log, "count active events", err)
	}

	return &d, nil
}

func (s *AnalyticsService) sumTransactions(db *gorm.DB, scope func(*gorm.DB) *gorm.DB, kind models.TransactionType) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := db.Model(&models.Transaction{}).Scopes(scope).
		Where("type = ? AND status = ?", kind, models.TransactionCompleted).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// ticketsByType joins ticket_types without the soft-delete filter so sales
// of types removed later still show up.
func (s *AnalyticsService) ticketsByType(db *gorm.DB, actor authz.Actor) ([]TypeCount, error) {
	q := db.Table("tickets").
		Select("ticket_types.name AS name, COUNT(*) AS tickets").
		Joins("JOIN ticket_types ON ticket_types.id = tickets.ticket_type_id").
		Where("tickets.parent_ticket_id IS NULL")
	if !actor.IsAdmin() {
		owned := db.Model(&models.Event{}).Select("id").Where("organizer_id = ?", actor.ID)
		q = q.Where("tickets.event_id IN (?)", owned)
	}

	counts := []TypeCount{}
	err := q.Group("ticket_types.name").Order("tickets DESC, name ASC").Scan(&counts).Error
	return counts, err
}
