package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
)

func GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	user, err := svc.Users.Get(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	tickets, err := svc.Lifecycle.CountHeld(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"tickets": tickets,
	})
}

// UpdateProfile takes a form with full_name and an optional avatar image.
func UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	in := services.ProfileInput{FullName: c.PostForm("full_name")}

	avatarFile, err := c.FormFile("avatar")
	if err == nil {
		cfg, ok := getConfig(c)
		if !ok {
			return
		}
		avatarURL, err := helpers.UploadFile(c, avatarFile, "avatars", helpers.ImageUploadConfig(cfg.UploadDir))
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		in.AvatarURL = avatarURL
	}

	ctx := c.Request.Context()

	var previousAvatar string
	if in.AvatarURL != "" {
		if current, err := svc.Users.Get(ctx, userID); err == nil {
			previousAvatar = current.AvatarURL
		}
	}

	user, err := svc.Users.UpdateProfile(ctx, middleware.GetActor(c), in)
	if err != nil {
		discardUpload(c, in.AvatarURL)
		helpers.RespondWithServiceError(c, err)
		return
	}
	if previousAvatar != "" && previousAvatar != user.AvatarURL {
		discardUpload(c, previousAvatar)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully.",
		"user":    user,
	})
}
