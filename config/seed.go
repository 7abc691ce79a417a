package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/farellandr/blocktix/internal/chain"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const SeedPassword = "password123"

type seedTicketType struct {
	name     string
	price    string
	quantity int
}

type seedEvent struct {
	title       string
	description string
	location    string
	category    string
	daysAhead   int
	capacity    int
	ticketTypes []seedTicketType
}

var demoEvents = []seedEvent{
	{
		title:       "Summer Music Festival",
		description: "Three stages of live music under the open sky.",
		location:    "Central Park",
		category:    "music",
		daysAhead:   30,
		capacity:    1000,
		ticketTypes: []seedTicketType{
			{name: "General Admission", price: "49.99", quantity: 800},
			{name: "VIP", price: "149.99", quantity: 200},
		},
	},
	{
		title:       "Go Developers Conference",
		description: "Talks and workshops for people who ship Go.",
		location:    "Convention Center",
		category:    "technology",
		daysAhead:   60,
		capacity:    300,
		ticketTypes: []seedTicketType{
			{name: "Early Bird", price: "99.00", quantity: 100},
			{name: "Standard", price: "199.00", quantity: 200},
		},
	},
	{
		title:       "City Marathon",
		description: "A full marathon through the old town.",
		location:    "Riverside Start Line",
		category:    "sports",
		daysAhead:   90,
		capacity:    500,
		ticketTypes: []seedTicketType{
			{name: "Runner", price: "35.00", quantity: 500},
		},
	},
}

// Seed inserts a demo organizer, attendee and on-sale events. Users are
// matched by email and events are only added when the organizer has none,
// so running it twice changes nothing.
func Seed(db *gorm.DB) error {
	organizer, err := seedUser(db, "organizer@blocktix.dev", "Demo Organizer", models.RoleOrganizer)
	if err != nil {
		return err
	}
	if _, err := seedUser(db, "attendee@blocktix.dev", "Demo Attendee", models.RoleAttendee); err != nil {
		return err
	}

	var existing int64
	if err := db.Model(&models.Event{}).Where("organizer_id = ?", organizer.ID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, se := range demoEvents {
			event := models.Event{
				Title:         se.title,
				Description:   se.description,
				StartsAt:      time.Now().UTC().AddDate(0, 0, se.daysAhead).Truncate(time.Hour),
				Location:      se.location,
				Category:      se.category,
				Status:        models.EventOnSale,
				TotalCapacity: se.capacity,
				OrganizerID:   organizer.ID,
			}
			if err := tx.Create(&event).Error; err != nil {
				return fmt.Errorf("seed event %q: %w", se.title, err)
			}

			for _, st := range se.ticketTypes {
				ticketType := models.TicketType{
					EventID:     event.ID,
					Name:        st.name,
					Price:       decimal.RequireFromString(st.price),
					Quantity:    st.quantity,
					Remaining:   st.quantity,
					MaxPerOrder: models.DefaultMaxPerOrder,
				}
				if err := tx.Create(&ticketType).Error; err != nil {
					return fmt.Errorf("seed ticket type %q: %w", st.name, err)
				}
			}
		}
		return nil
	})
}

func seedUser(db *gorm.DB, email, fullName, roleName string) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return nil, fmt.Errorf("seed role %s: %w", roleName, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user = models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hashedPassword),
		FullName: fullName,
		RoleID:   role.ID,
	}
	user.WalletAddress = chain.WalletAddress(user.ID)
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}
	return &user, nil
}
