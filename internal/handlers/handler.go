package handlers

import (
	"net/http"

	"github.com/farellandr/blocktix/config"
	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
)

func getServices(c *gin.Context) (*services.Services, bool) {
	svc := middleware.GetServices(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return nil, false
	}
	return svc, true
}

func getConfig(c *gin.Context) (*config.Config, bool) {
	cfg := middleware.GetConfig(c)
	if cfg == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Configuration not found.")
		return nil, false
	}
	return cfg, true
}
