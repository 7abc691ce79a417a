package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/farellandr/blocktix/internal/authz"
	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyRole   = "role"
)

const TokenTTL = 24 * time.Hour

// GenerateToken issues the HS256 access token checked by JWTAuthMiddleware.
func GenerateToken(secret string, user *models.User, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    user.Role.Name,
		"iat":     now.Unix(),
		"exp":     now.Add(TokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// JWTAuthMiddleware rejects requests without a valid bearer token and puts
// the caller's id, email and role on the context.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			helpers.AbortWithError(c, http.StatusUnauthorized, "Authorization header is required.")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) == len(bearerPrefix) {
			helpers.AbortWithError(c, http.StatusUnauthorized, "Invalid authorization header format.")
			return
		}
		tokenString := authHeader[len(bearerPrefix):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				helpers.AbortWithError(c, http.StatusUnauthorized, "Access token has expired.")
				return
			}
			helpers.AbortWithError(c, http.StatusUnauthorized, "Invalid access token.")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			helpers.AbortWithError(c, http.StatusUnauthorized, "Invalid token claims.")
			return
		}

		rawID, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(rawID)
		if err != nil {
			helpers.AbortWithError(c, http.StatusUnauthorized, "Missing user_id in token.")
			return
		}
		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyEmail, email)
		c.Set(ContextKeyRole, role)

		c.Next()
	}
}

// RequireRole only lets callers with one of roles through.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			helpers.AbortWithError(c, http.StatusUnauthorized, "User not authenticated.")
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		helpers.AbortWithError(c, http.StatusForbidden, "Insufficient permissions.")
	}
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

func GetRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(ContextKeyRole)
	if !exists {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}

// GetActor returns the caller as seen by authz. It is the zero Actor on
// public routes.
func GetActor(c *gin.Context) authz.Actor {
	id, _ := GetUserID(c)
	role, _ := GetRole(c)
	return authz.Actor{ID: id, Role: role}
}
