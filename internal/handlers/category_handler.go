package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/gin-gonic/gin"
)

func ListCategories(c *gin.Context) {
	svc, ok := getServices(c)
	if !ok {
		return
	}

	categories, err := svc.Events.Categories(c.Request.Context())
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
	})
}
