package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/gin-gonic/gin"
)

type RoleRequest struct {
	RoleName string `json:"role_name" binding:"required"`
}

func UpdateUserRole(c *gin.Context) {
	userID, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	svc, ok := getServices(c)
	if !ok {
		return
	}

	user, err := svc.Users.UpdateRole(c.Request.Context(), middleware.GetActor(c), userID, req.RoleName)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated successfully.",
		"user":    user,
	})
}

func GetDashboard(c *gin.Context) {
	svc, ok := getServices(c)
	if !ok {
		return
	}

	dashboard, err := svc.Analytics.Dashboard(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
