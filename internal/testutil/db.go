// Package testutil provides a throwaway database for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/farellandr/blocktix/config"
	"github.com/farellandr/blocktix/internal/chain"
	applog "github.com/farellandr/blocktix/internal/logger"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a file-backed sqlite database in t.TempDir, migrated and
// seeded with roles. A single connection serializes transactions the way
// row locks would on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "blocktix.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger:                                   applog.NewGormLogger(zaptest.NewLogger(t), logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func role(t *testing.T, db *gorm.DB, name string) models.Role {
	t.Helper()
	var r models.Role
	if err := db.Where("name = ?", name).First(&r).Error; err != nil {
		t.Fatalf("role %s: %v", name, err)
	}
	return r
}

// CreateUser inserts a user with the given role. The password is not hashed.
func CreateUser(t *testing.T, db *gorm.DB, email, roleName string) models.User {
	t.Helper()
	r := role(t, db, roleName)
	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "unused",
		FullName: email,
		RoleID:   r.ID,
	}
	user.WalletAddress = chain.WalletAddress(user.ID)
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	user.Role = r
	return user
}

// CreateEvent inserts an on-sale event owned by organizer.
func CreateEvent(t *testing.T, db *gorm.DB, organizer models.User, capacity int) models.Event {
	t.Helper()
	event := models.Event{
		Title:         "Test Event",
		Description:   "An event for tests",
		StartsAt:      time.Now().Add(72 * time.Hour),
		Location:      "Main Hall",
		Category:      "music",
		Status:        models.EventOnSale,
		TotalCapacity: capacity,
		OrganizerID:   organizer.ID,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// CreateTicketType inserts a ticket type with remaining equal to quantity.
func CreateTicketType(t *testing.T, db *gorm.DB, event models.Event, price string, quantity, maxPerOrder int) models.TicketType {
	t.Helper()
	ticketType := models.TicketType{
		EventID:     event.ID,
		Name:        "General Admission",
		Price:       decimal.RequireFromString(price),
		Quantity:    quantity,
		Remaining:   quantity,
		MaxPerOrder: maxPerOrder,
	}
	if err := db.Create(&ticketType).Error; err != nil {
		t.Fatalf("create ticket type: %v", err)
	}
	return ticketType
}
