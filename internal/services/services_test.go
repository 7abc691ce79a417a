package services

import (
	"context"
	"testing"
	"time"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/farellandr/blocktix/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	issuance    *IssuanceService
	lifecycle   *LifecycleService
	events      *EventService
	ticketTypes *TicketTypeService
	users       *UserService
	analytics   *AnalyticsService

	organizer models.User
	buyerA    models.User
	buyerB    models.User
	admin     models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	log := zaptest.NewLogger(t)

	return &testEnv{
		db:          db,
		issuance:    NewIssuanceService(db, log),
		lifecycle:   NewLifecycleService(db, log),
		events:      NewEventService(db, log),
		ticketTypes: NewTicketTypeService(db, log),
		users:       NewUserService(db, log),
		analytics:   NewAnalyticsService(db, log),

		organizer: testutil.CreateUser(t, db, "organizer@example.com", models.RoleOrganizer),
		buyerA:    testutil.CreateUser(t, db, "a@example.com", models.RoleAttendee),
		buyerB:    testutil.CreateUser(t, db, "b@example.com", models.RoleAttendee),
		admin:     testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin),
	}
}

func actorFor(u models.User) authz.Actor {
	return authz.Actor{ID: u.ID, Role: u.Role.Name}
}

// onSale creates an on-sale event with one ticket type.
func (env *testEnv) onSale(t *testing.T, price string, quantity, maxPerOrder int) (models.Event, models.TicketType) {
	t.Helper()
	capacity := quantity
	if capacity < 1 {
		capacity = 1
	}
	event := testutil.CreateEvent(t, env.db, env.organizer, capacity)
	ticketType := testutil.CreateTicketType(t, env.db, event, price, quantity, maxPerOrder)
	return event, ticketType
}

func (env *testEnv) buy(t *testing.T, buyer models.User, event models.Event, ticketType models.TicketType, quantity int) []models.Ticket {
	t.Helper()
	result, err := env.issuance.Purchase(context.Background(), actorFor(buyer), PurchaseRequest{
		EventID:      event.ID,
		TicketTypeID: ticketType.ID,
		Quantity:     quantity,
	})
	require.NoError(t, err)
	return result.Tickets
}

func (env *testEnv) remaining(t *testing.T, ticketTypeID uuid.UUID) int {
	t.Helper()
	var ticketType models.TicketType
	require.NoError(t, env.db.Unscoped().Where("id = ?", ticketTypeID).First(&ticketType).Error)
	return ticketType.Remaining
}

func (env *testEnv) ticket(t *testing.T, id uuid.UUID) models.Ticket {
	t.Helper()
	var ticket models.Ticket
	require.NoError(t, env.db.Where("id = ?", id).First(&ticket).Error)
	return ticket
}

func (env *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
