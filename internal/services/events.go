package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

type EventService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEventService(db *gorm.DB, log *zap.Logger) *EventService {
	return &EventService{db: db, log: log.Named("events")}
}

type EventInput struct {
	Title         string
	Description   string
	ImageURL      string
	StartsAt      time.Time
	Location      string
	Address       string
	Category      string
	Status        models.EventStatus
	TotalCapacity int
}

func (in *EventInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))

	switch {
	case in.Title == "":
		return invalid("Title is required.")
	case in.Location == "":
		return invalid("Location is required.")
	case in.StartsAt.IsZero():
		return invalid("Start time is required.")
	case in.TotalCapacity < 1:
		return invalid("Total capacity must be at least 1.")
	case in.Status != "" && !in.Status.Valid():
		return invalid("Invalid event status.")
	}
	return nil
}

type EventFilter struct {
	Category string
	Status   models.EventStatus
	Limit    int
	Offset   int
}

type CategoryCount struct {
	Category string `json:"category"`
	Events   int64  `json:"events"`
}

func (s *EventService) Create(ctx context.Context, actor authz.Actor, in EventInput) (*models.Event, error) {
	if !authz.Can(actor, authz.ActionCreateEvent, authz.Resource{}) {
		return nil, forbidden("Only organizers can create events.")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.EventDraft
	}

	event := models.Event{
		Title:         in.Title,
		Description:   in.Description,
		ImageURL:      in.ImageURL,
		StartsAt:      in.StartsAt.UTC(),
		Location:      in.Location,
		Address:       in.Address,
		Category:      in.Category,
		Status:        in.Status,
		TotalCapacity: in.TotalCapacity,
		OrganizerID:   actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, storeFailure(s.log, "create event", err)
	}

	s.log.Info("event created", zap.String("event_id", event.ID.String()), zap.String("organizer_id", actor.ID.String()))
	return &event, nil
}

func (s *EventService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, in EventInput) (*models.Event, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var event models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Event not found.")
			}
			return err
		}
		if !authz.Can(actor, authz.ActionManageEvent, authz.Resource{OrganizerID: event.OrganizerID}) {
			return forbidden("You do not have permission to update this event.")
		}

		allotted, err := allottedQuantity(tx, event.ID, uuid.Nil)
		if err != nil {
			return err
		}
		if int64(in.TotalCapacity) < allotted {
			return invalid(fmt.Sprintf("Total capacity cannot be lower than the %d tickets allotted to ticket types.", allotted))
		}

		if in.ImageURL == "" {
			in.ImageURL = event.ImageURL
		}
		if in.Status == "" {
			in.Status = event.Status
		}
		event.Title = in.Title
		event.Description = in.Description
		event.ImageURL = in.ImageURL
		event.StartsAt = in.StartsAt.UTC()
		event.Location = in.Location
		event.Address = in.Address
		event.Category = in.Category
		event.Status = in.Status
		event.TotalCapacity = in.TotalCapacity
		return tx.Save(&event).Error
	})
	if err != nil {
		return nil, storeFailure(s.log, "update event", err)
	}
	return &event, nil
}

// Delete removes an event that never sold a ticket. Events with issued
// tickets must be canceled instead so the tickets keep a valid event.
func (s *EventService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ?", id).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Event not found.")
			}
			return err
		}
		if !authz.Can(actor, authz.ActionManageEvent, authz.Resource{OrganizerID: event.OrganizerID}) {
			return forbidden("You do not have permission to delete this event.")
		}

		var issued int64
		if err := tx.Model(&models.Ticket{}).Where("event_id = ?", event.ID).Count(&issued).Error; err != nil {
			return err
		}
		if issued > 0 {
			return invalid("Events with issued tickets cannot be deleted; cancel the event instead.")
		}

		if err := tx.Where("event_id = ?", event.ID).Delete(&models.TicketType{}).Error; err != nil {
			return err
		}
		return tx.Delete(&event).Error
	})
	if err != nil {
		return storeFailure(s.log, "delete event", err)
	}

	s.log.Info("event deleted", zap.String("event_id", id.String()), zap.String("actor_id", actor.ID.String()))
	return nil
}

// Get returns an event with its ticket types. Drafts are only visible to
// the people who can manage them.
func (s *EventService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).
		Preload("Organizer").
		Preload("TicketTypes", func(db *gorm.DB) *gorm.DB { return db.Order("price ASC") }).
		Where("id = ?", id).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Event not found.")
	}
	if err != nil {
		return nil, storeFailure(s.log, "get event", err)
	}

	if !event.Status.Published() && !authz.Can(actor, authz.ActionManageEvent, authz.Resource{OrganizerID: event.OrganizerID}) {
		return nil, notFound("Event not found.")
	}
	return &event, nil
}

// List returns published events, newest first, with the total count.
func (s *EventService) List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxEventLimit {
		limit = defaultEventLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Event{}).Where("status <> ?", models.EventDraft)
	if filter.Category != "" {
		query = query.Where("category = ?", strings.ToLower(filter.Category))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure(s.log, "count events", err)
	}

	var events []models.Event
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		return nil, 0, storeFailure(s.log, "list events", err)
	}
	return events, total, nil
}

func (s *EventService) ListByOrganizer(ctx context.Context, actor authz.Actor) ([]models.Event, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var events []models.Event
	err := s.db.WithContext(ctx).
		Preload("TicketTypes").
		Where("organizer_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, storeFailure(s.log, "list organizer events", err)
	}
	return events, nil
}

// Categories counts published events per category.
func (s *EventService) Categories(ctx context.Context) ([]CategoryCount, error) {
	var counts []CategoryCount
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("category, COUNT(*) AS events").
		Where("status <> ? AND category <> ''", models.EventDraft).
		Group("category").
		Order("events DESC, category ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, storeFailure(s.log, "list categories", err)
	}
	return counts, nil
}

// allottedQuantity sums ticket type allotments of an event, leaving out
// the ticket type being edited.
func allottedQuantity(tx *gorm.DB, eventID, excludeTypeID uuid.UUID) (int64, error) {
	query := tx.Model(&models.TicketType{}).Where("event_id = ?", eventID)
	if excludeTypeID != uuid.Nil {
		query = query.Where("id <> ?", excludeTypeID)
	}

	var total int64
	if err := query.Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
