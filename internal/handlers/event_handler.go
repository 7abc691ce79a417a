package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bindEventForm reads an event from a multipart or urlencoded form and
// stores the optional image upload.
func bindEventForm(c *gin.Context) (services.EventInput, bool) {
	startsAt, err := helpers.ParseTime(c.PostForm("starts_at"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid start time format.")
		return services.EventInput{}, false
	}

	capacity, err := helpers.StringToInt(c.PostForm("total_capacity"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid total capacity.")
		return services.EventInput{}, false
	}

	in := services.EventInput{
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		StartsAt:      startsAt,
		Location:      c.PostForm("location"),
		Address:       c.PostForm("address"),
		Category:      c.PostForm("category"),
		Status:        models.EventStatus(c.PostForm("status")),
		TotalCapacity: capacity,
	}

	imageFile, err := c.FormFile("image")
	if err == nil {
		cfg, ok := getConfig(c)
		if !ok {
			return services.EventInput{}, false
		}
		imageURL, err := helpers.UploadFile(c, imageFile, "event_images", helpers.ImageUploadConfig(cfg.UploadDir))
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return services.EventInput{}, false
		}
		in.ImageURL = imageURL
	}
	return in, true
}

func CreateEvent(c *gin.Context) {
	in, ok := bindEventForm(c)
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	event, err := svc.Events.Create(c.Request.Context(), middleware.GetActor(c), in)
	if err != nil {
		discardUpload(c, in.ImageURL)
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Event created successfully.",
		"event_id": event.ID,
		"event":    event,
	})
}

func GetEvent(c *gin.Context) {
	eventID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	event, err := svc.Events.Get(c.Request.Context(), middleware.GetActor(c), eventID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func ListEvents(c *gin.Context) {
	page, err := helpers.ParsePage(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	events, total, err := svc.Events.List(c.Request.Context(), services.EventFilter{
		Category: c.Query("category"),
		Status:   models.EventStatus(c.Query("status")),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       total,
		"page":        page.Page,
		"limit":       page.Limit,
		"total_pages": helpers.TotalPages(total, page.Limit),
	})
}

func ListMyEvents(c *gin.Context) {
	svc, ok := getServices(c)
	if !ok {
		return
	}

	events, err := svc.Events.ListByOrganizer(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
	})
}

func UpdateEvent(c *gin.Context) {
	eventID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	in, ok := bindEventForm(c)
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	var previousImage string
	if in.ImageURL != "" {
		if current, err := svc.Events.Get(ctx, actor, eventID); err == nil {
			previousImage = current.ImageURL
		}
	}

	event, err := svc.Events.Update(ctx, actor, eventID, in)
	if err != nil {
		discardUpload(c, in.ImageURL)
		helpers.RespondWithServiceError(c, err)
		return
	}
	if previousImage != "" && previousImage != event.ImageURL {
		discardUpload(c, previousImage)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully.",
		"event":   event,
	})
}

func DeleteEvent(c *gin.Context) {
	eventID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	if err := svc.Events.Delete(c.Request.Context(), middleware.GetActor(c), eventID); err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted successfully.",
	})
}

// ListEventTickets is the organizer's attendee list.
func ListEventTickets(c *gin.Context) {
	eventID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	tickets, err := svc.Lifecycle.ListForEvent(c.Request.Context(), middleware.GetActor(c), eventID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tickets": tickets,
		"total":   len(tickets),
	})
}

func discardUpload(c *gin.Context, url string) {
	if url == "" {
		return
	}
	cfg := middleware.GetConfig(c)
	if cfg == nil {
		return
	}
	if err := helpers.DeleteFile(cfg.UploadDir, url); err != nil {
		middleware.GetLogger(c).Warn("failed to delete upload", zap.String("url", url), zap.Error(err))
	}
}
