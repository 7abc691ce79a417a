package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/chain"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type UserService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUserService(db *gorm.DB, log *zap.Logger) *UserService {
	return &UserService{db: db, log: log.Named("users")}
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return nil, invalid("A valid email address is required.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
	}

	roleName := in.Role
	if roleName == "" {
		roleName = models.RoleAttendee
	}
	if roleName == models.RoleAdmin {
		return nil, forbidden("Admin accounts cannot be self-registered.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("Invalid role.")
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return newError(KindConflict, "User already exists.")
		}

		user = models.User{
			ID:       uuid.New(),
			Email:    email,
			Password: string(hashedPassword),
			FullName: strings.TrimSpace(in.FullName),
			RoleID:   role.ID,
		}
		user.WalletAddress = chain.WalletAddress(user.ID)
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		user.Role = role
		return nil
	})
	if err != nil {
		return nil, storeFailure(s.log, "register", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", roleName))
	return &user, nil
}

// Authenticate checks credentials and returns the user with its role.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindUnauthorized, "Invalid credentials.")
	}
	if err != nil {
		return nil, storeFailure(s.log, "authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, newError(KindUnauthorized, "Invalid credentials.")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("User not found.")
	}
	if err != nil {
		return nil, storeFailure(s.log, "get user", err)
	}
	return &user, nil
}

type ProfileInput struct {
	FullName  string
	AvatarURL string
}

// UpdateProfile edits the actor's own display name and avatar. An empty
// AvatarURL keeps the current avatar.
func (s *UserService) UpdateProfile(ctx context.Context, actor authz.Actor, in ProfileInput) (*models.User, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, invalid("Full name is required.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Role").Where("id = ?", actor.ID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("User not found.")
			}
			return err
		}

		user.FullName = fullName
		if in.AvatarURL != "" {
			user.AvatarURL = in.AvatarURL
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"full_name":  user.FullName,
			"avatar_url": user.AvatarURL,
		}).Error
	})
	if err != nil {
		return nil, storeFailure(s.log, "update profile", err)
	}
	return &user, nil
}

func (s *UserService) UpdateRole(ctx context.Context, actor authz.Actor, userID uuid.UUID, roleName string) (*models.User, error) {
	if !authz.Can(actor, authz.ActionManageRoles, authz.Resource{}) {
		return nil, forbidden("Only admins can change roles.")
	}
	if actor.ID == userID {
		return nil, invalid("You cannot change your own role.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("Invalid role.")
			}
			return err
		}

		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("User not found.")
			}
			return err
		}

		if err := tx.Model(&user).Update("role_id", role.ID).Error; err != nil {
			return err
		}
		user.RoleID = role.ID
		user.Role = role
		return nil
	})
	if err != nil {
		return nil, storeFailure(s.log, "update role", err)
	}

	s.log.Info("role updated",
		zap.String("user_id", userID.String()),
		zap.String("role", roleName),
		zap.String("admin_id", actor.ID.String()),
	)
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// findRecipient resolves a transfer recipient by email or, for 0x-prefixed
// input, by wallet address.
func findRecipient(tx *gorm.DB, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, invalid("A recipient email or wallet address is required")
	}

	query := tx.Where("email = ?", normalizeEmail(identifier))
	if chain.LooksLikeAddress(identifier) {
		query = tx.Where("wallet_address = ?", strings.ToLower(identifier))
	}

	var user models.User
	err := query.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
