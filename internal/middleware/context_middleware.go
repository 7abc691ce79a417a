package middleware

import (
	"github.com/farellandr/blocktix/config"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	ContextKeyServices = "services"
	ContextKeyConfig   = "config"
)

func ServicesMiddleware(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyServices, svc)
		c.Next()
	}
}

func GetServices(c *gin.Context) *services.Services {
	svc, exists := c.Get(ContextKeyServices)
	if !exists {
		return nil
	}
	return svc.(*services.Services)
}

func ConfigMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyConfig, cfg)
		c.Next()
	}
}

func GetConfig(c *gin.Context) *config.Config {
	cfg, exists := c.Get(ContextKeyConfig)
	if !exists {
		return nil
	}
	return cfg.(*config.Config)
}
