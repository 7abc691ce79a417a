package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/gin-gonic/gin"
)

type TransferRequest struct {
	To string `json:"to" binding:"required"`
}

// ListTickets returns the caller's tickets.
func ListTickets(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	tickets, err := svc.Lifecycle.ListHeld(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tickets": tickets,
	})
}

func GetTicket(c *gin.Context) {
	ticketID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	ticket, err := svc.Lifecycle.Get(c.Request.Context(), middleware.GetActor(c), ticketID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func RedeemTicket(c *gin.Context) {
	ticketID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	ticket, err := svc.Lifecycle.Redeem(c.Request.Context(), middleware.GetActor(c), ticketID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket redeemed successfully.",
		"ticket":  ticket,
	})
}

func TransferTicket(c *gin.Context) {
	ticketID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A recipient email or wallet address is required.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	result, err := svc.Lifecycle.Transfer(c.Request.Context(), middleware.GetActor(c), ticketID, req.To)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket transferred successfully.",
		"ticket":  result.Replacement,
		"recipient": gin.H{
			"id":             result.Recipient.ID,
			"email":          result.Recipient.Email,
			"wallet_address": result.Recipient.WalletAddress,
		},
	})
}

func RefundTicket(c *gin.Context) {
	ticketID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	ticket, err := svc.Lifecycle.Refund(c.Request.Context(), middleware.GetActor(c), ticketID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket refunded successfully.",
		"ticket":  ticket,
	})
}
