package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PurchaseRequest struct {
	EventID      uuid.UUID `json:"event_id" binding:"required"`
	TicketTypeID uuid.UUID `json:"ticket_type_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required"`
	BuyerID      uuid.UUID `json:"buyer_id"`
}

type ValidateRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

func PurchaseTickets(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	result, err := svc.Issuance.Purchase(c.Request.Context(), middleware.GetActor(c), services.PurchaseRequest{
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		BuyerID:      req.BuyerID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Tickets purchased successfully.",
		"tickets":     result.Tickets,
		"transaction": result.Transaction,
		"total":       result.Total.StringFixed(2),
	})
}

func GenerateTicketQR(c *gin.Context) {
	ticketID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}
	cfg, ok := getConfig(c)
	if !ok {
		return
	}

	ticket, err := svc.Lifecycle.CodeTicket(c.Request.Context(), middleware.GetActor(c), ticketID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	qrImage, err := helpers.NewTicketSigner(cfg.QRSigningSecret).QRCode(ticket)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// ValidateTicket is the door scanner: it checks the QR signature and
// redeems the ticket on behalf of the scanning organizer.
func ValidateTicket(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	ticketID, _, err := helpers.ParseQRData(req.QRData)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid QR code format.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}
	cfg, ok := getConfig(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	ticket, err := svc.Lifecycle.Get(ctx, actor, ticketID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}
	if !helpers.NewTicketSigner(cfg.QRSigningSecret).Verify(ticket, req.QRData) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid QR code signature.")
		return
	}

	redeemed, err := svc.Lifecycle.Redeem(ctx, actor, ticket.ID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	eventTitle := ""
	if ticket.Event != nil {
		eventTitle = ticket.Event.Title
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket validated successfully.",
		"ticket": gin.H{
			"id":          redeemed.ID,
			"event_title": eventTitle,
			"seat_label":  redeemed.SeatLabel,
			"holder_id":   redeemed.HolderID,
			"used_at":     redeemed.UsedAt,
		},
	})
}
