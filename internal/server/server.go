package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farellandr/blocktix/config"
	"github.com/farellandr/blocktix/internal/handlers"
	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func Start(cfg *config.Config, log *zap.Logger) error {
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = connectRedis(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, purchase rate limiting disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter redis.Cmdable
	if rdb != nil {
		limiter = rdb
	}
	r := NewRouter(cfg, log, db, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRouter wires every route. rdb may be nil, which disables purchase
// rate limiting.
func NewRouter(cfg *config.Config, log *zap.Logger, db *gorm.DB, rdb redis.Cmdable) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log))

	svc := services.New(db, log)
	r.Use(middleware.ServicesMiddleware(svc), middleware.ConfigMiddleware(cfg))

	r.Static(helpers.UploadsURLPrefix, cfg.UploadDir)
	r.GET("/healthz", healthCheck(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupRoutes(r, cfg, log, rdb)
	return r
}

func setupRoutes(r *gin.Engine, cfg *config.Config, log *zap.Logger, rdb redis.Cmdable) {
	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)
		public.GET("/categories", handlers.ListCategories)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", optionalAuth(cfg.JWTSecret), handlers.GetEvent)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		protected.GET("/profile", handlers.GetProfile)
		protected.PUT("/profile", handlers.UpdateProfile)

		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", handlers.CreateEvent)
			eventProtected.GET("/mine", handlers.ListMyEvents)
			eventProtected.PUT("/:id", handlers.UpdateEvent)
			eventProtected.DELETE("/:id", handlers.DeleteEvent)
			eventProtected.GET("/:id/tickets", handlers.ListEventTickets)
			eventProtected.POST("/:id/ticket-types", handlers.CreateTicketType)
		}

		ticketTypes := protected.Group("/ticket-types")
		{
			ticketTypes.PUT("/:id", handlers.UpdateTicketType)
			ticketTypes.DELETE("/:id", handlers.DeleteTicketType)
		}

		purchase := []gin.HandlerFunc{handlers.PurchaseTickets}
		if rdb != nil {
			limiter := middleware.NewRateLimiter(rdb, log, "purchase", cfg.PurchaseRateLimit, time.Minute)
			purchase = append([]gin.HandlerFunc{limiter.Middleware()}, purchase...)
		}
		protected.POST("/purchases", purchase...)

		tickets := protected.Group("/tickets")
		{
			tickets.GET("", handlers.ListTickets)
			tickets.POST("/validate", handlers.ValidateTicket)
			tickets.GET("/:id", handlers.GetTicket)
			tickets.GET("/:id/qr", handlers.GenerateTicketQR)
			tickets.POST("/:id/redeem", handlers.RedeemTicket)
			tickets.POST("/:id/transfer", handlers.TransferTicket)
			tickets.POST("/:id/refund", handlers.RefundTicket)
		}

		protected.GET("/dashboard", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), handlers.GetDashboard)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.PUT("/users/:id/role", handlers.UpdateUserRole)
		}
	}
}

// optionalAuth identifies the caller when a valid token is sent, so owners
// can see their drafts, and otherwise lets the request through anonymously.
func optionalAuth(secret string) gin.HandlerFunc {
	auth := middleware.JWTAuthMiddleware(secret)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		auth(c)
	}
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			helpers.RespondWithError(c, http.StatusServiceUnavailable, "Database is unreachable.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
