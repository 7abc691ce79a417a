package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/services"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
	RoleName string `json:"role_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	user, err := svc.Users.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.RoleName,
	})
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    user,
	})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
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

	user, err := svc.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	tokenString, err := middleware.GenerateToken(cfg.JWTSecret, user, time.Now())
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user": gin.H{
			"id":             user.ID,
			"email":          user.Email,
			"full_name":      user.FullName,
			"role":           user.Role.Name,
			"wallet_address": user.WalletAddress,
		},
	})
}
