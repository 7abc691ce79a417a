package services

import (
	"context"
	"testing"

	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTicketType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event, err := env.events.Create(ctx, actorFor(env.organizer), eventInput("Derby", 100))
	require.NoError(t, err)

	ticketType, err := env.ticketTypes.Create(ctx, actorFor(env.organizer), event.ID, TicketTypeInput{
		Name:     "  Tribune  ",
		Price:    decimal.RequireFromString("35.00"),
		Quantity: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tribune", ticketType.Name)
	assert.Equal(t, 80, ticketType.Remaining)
	assert.Equal(t, models.DefaultMaxPerOrder, ticketType.MaxPerOrder)

	// the second allotment would push the event past its capacity
	_, err = env.ticketTypes.Create(ctx, actorFor(env.organizer), event.ID, TicketTypeInput{
		Name: "Pitch", Price: decimal.RequireFromString("90.00"), Quantity: 21,
	})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.ticketTypes.Create(ctx, actorFor(env.organizer), event.ID, TicketTypeInput{
		Name: "Pitch", Price: decimal.RequireFromString("90.00"), Quantity: 20,
	})
	require.NoError(t, err)
}

func TestCreateTicketTypeRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event, err := env.events.Create(ctx, actorFor(env.organizer), eventInput("Derby", 100))
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      TicketTypeInput
		eventID uuid.UUID
		actor   models.User
		wantErr error
	}{
		{"missing name", TicketTypeInput{Quantity: 1}, event.ID, env.organizer, ErrInvalidRequest},
		{"negative price", TicketTypeInput{Name: "A", Price: decimal.NewFromInt(-1), Quantity: 1}, event.ID, env.organizer, ErrInvalidRequest},
		{"negative quantity", TicketTypeInput{Name: "A", Quantity: -1}, event.ID, env.organizer, ErrInvalidRequest},
		{"negative cap", TicketTypeInput{Name: "A", Quantity: 1, MaxPerOrder: -2}, event.ID, env.organizer, ErrInvalidRequest},
		{"not the organizer", TicketTypeInput{Name: "A", Quantity: 1}, event.ID, env.buyerA, ErrForbidden},
		{"unknown event", TicketTypeInput{Name: "A", Quantity: 1}, uuid.New(), env.organizer, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ticketTypes.Create(ctx, actorFor(tt.actor), tt.eventID, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateTicketTypeQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event, ticketType := env.onSale(t, "10.00", 10, 10)
	env.buy(t, env.buyerA, event, ticketType, 4)

	require.NoError(t, env.db.Model(&event).Update("total_capacity", 50).Error)

	updated, err := env.ticketTypes.Update(ctx, actorFor(env.organizer), ticketType.ID, TicketTypeInput{
		Name:        "Early Bird",
		Price:       decimal.RequireFromString("12.50"),
		Quantity:    20,
		MaxPerOrder: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Early Bird", updated.Name)
	assert.Equal(t, 20, updated.Quantity)
	assert.Equal(t, 16, updated.Remaining)
	assert.Equal(t, 3, updated.MaxPerOrder)

	_, err = env.ticketTypes.Update(ctx, actorFor(env.organizer), ticketType.ID, TicketTypeInput{
		Name: "Early Bird", Price: decimal.RequireFromString("12.50"), Quantity: 3,
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, "Quantity cannot be lower than the number of tickets already sold.", err.Error())

	_, err = env.ticketTypes.Update(ctx, actorFor(env.organizer), ticketType.ID, TicketTypeInput{
		Name: "Early Bird", Price: decimal.RequireFromString("12.50"), Quantity: 51,
	})
	require.ErrorIs(t, err, ErrInvalidRequest)

	updated, err = env.ticketTypes.Update(ctx, actorFor(env.organizer), ticketType.ID, TicketTypeInput{
		Name: "Early Bird", Price: decimal.RequireFromString("12.50"), Quantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Remaining)

	_, err = env.issuance.Purchase(ctx, actorFor(env.buyerB), PurchaseRequest{
		EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1,
	})
	require.ErrorIs(t, err, ErrSoldOut)
}

func TestUpdateAndDeleteTicketTypePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, ticketType := env.onSale(t, "10.00", 10, 10)

	in := TicketTypeInput{Name: "General", Price: decimal.RequireFromString("10.00"), Quantity: 10}
	_, err := env.ticketTypes.Update(ctx, actorFor(env.buyerA), ticketType.ID, in)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = env.ticketTypes.Update(ctx, actorFor(env.organizer), uuid.New(), in)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, env.ticketTypes.Delete(ctx, actorFor(env.buyerA), ticketType.ID), ErrForbidden)
	require.NoError(t, env.ticketTypes.Delete(ctx, actorFor(env.organizer), ticketType.ID))
	require.ErrorIs(t, env.ticketTypes.Delete(ctx, actorFor(env.organizer), ticketType.ID), ErrNotFound)
}
