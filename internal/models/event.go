package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventOnSale    EventStatus = "on_sale"
	EventUpcoming  EventStatus = "upcoming"
	EventCompleted EventStatus = "completed"
	EventCanceled  EventStatus = "canceled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventOnSale, EventUpcoming, EventCompleted, EventCanceled:
		return true
	}
	return false
}

// Published reports whether the event is visible to attendees.
func (s EventStatus) Published() bool {
	return s.Valid() && s != EventDraft
}

type Event struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `json:"description"`
	ImageURL      string         `json:"image_url,omitempty"`
	StartsAt      time.Time      `gorm:"not null" json:"starts_at"`
	Location      string         `gorm:"not null" json:"location"`
	Address       string         `json:"address,omitempty"`
	Category      string         `gorm:"index" json:"category"`
	Status        EventStatus    `gorm:"not null;default:'draft';index" json:"status"`
	TotalCapacity int            `gorm:"not null" json:"total_capacity"`
	OrganizerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer     *User          `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	TicketTypes   []TicketType   `json:"ticket_types,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}
