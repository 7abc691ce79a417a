package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TicketTypeRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" binding:"min=0"`
	MaxPerOrder int             `json:"max_per_order"`
}

func (r TicketTypeRequest) input() services.TicketTypeInput {
	return services.TicketTypeInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price.Round(2),
		Quantity:    r.Quantity,
		MaxPerOrder: r.MaxPerOrder,
	}
}

func CreateTicketType(c *gin.Context) {
	eventID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req TicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	ticketType, err := svc.TicketTypes.Create(c.Request.Context(), middleware.GetActor(c), eventID, req.input())
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Ticket type created successfully.",
		"ticket_type": ticketType,
	})
}

func UpdateTicketType(c *gin.Context) {
	ticketTypeID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req TicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	ticketType, err := svc.TicketTypes.Update(c.Request.Context(), middleware.GetActor(c), ticketTypeID, req.input())
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Ticket type updated successfully.",
		"ticket_type": ticketType,
	})
}

func DeleteTicketType(c *gin.Context) {
	ticketTypeID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	if err := svc.TicketTypes.Delete(c.Request.Context(), middleware.GetActor(c), ticketTypeID); err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket type deleted successfully.",
	})
}
