package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services bundles every service the HTTP layer talks to.
type Services struct {
	Issuance    *IssuanceService
	Lifecycle   *LifecycleService
	Events      *EventService
	TicketTypes *TicketTypeService
	Users       *UserService
	Analytics   *AnalyticsService
}

func New(db *gorm.DB, log *zap.Logger) *Services {
	return &Services{
		Issuance:    NewIssuanceService(db, log),
		Lifecycle:   NewLifecycleService(db, log),
		Events:      NewEventService(db, log),
		TicketTypes: NewTicketTypeService(db, log),
		Users:       NewUserService(db, log),
		Analytics:   NewAnalyticsService(db, log),
	}
}
