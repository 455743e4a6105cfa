package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler         *handler.TripHandler
	NotificationHandler *handler.NotificationHandler
	StreamHandler       *handler.StreamHandler
	AdminHandler        *handler.AdminHandler
	Verifier            *middleware.TokenVerifier
	RedisClient         redis.Cmdable
	NewRelicApp         *newrelic.Application
	Logger              logrus.FieldLogger
	CORSOrigins         []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog(deps.Logger))
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes. Everything below requires a bearer token.
	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(deps.Verifier))
	v1.Use(middleware.NewRelicActor())
	if deps.RedisClient != nil {
		v1.Use(middleware.Idempotency(deps.RedisClient, deps.Logger))
	}
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.POST("/confirm-by-code", deps.TripHandler.ConfirmByCode)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/assign", deps.TripHandler.AssignDriver)
			trips.PATCH("/:id/status", deps.TripHandler.UpdateStatus)
			trips.PUT("/:id/location", deps.TripHandler.RecordLocation)
			trips.GET("/:id/location", deps.TripHandler.GetLocation)
			trips.GET("/:id/route", deps.TripHandler.GetRoute)
			trips.GET("/:id/qr", deps.TripHandler.GetQRCode)
		}

		// Notification routes.
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", deps.NotificationHandler.List)
			notifications.GET("/unread-count", deps.NotificationHandler.UnreadCount)
			notifications.PATCH("/read-all", deps.NotificationHandler.MarkAllRead)
			notifications.PATCH("/:id/read", deps.NotificationHandler.MarkRead)
		}

		// Realtime stream.
		v1.GET("/stream", deps.StreamHandler.Stream)

		// Admin routes.
		admin := v1.Group("/admin")
		{
			admin.GET("/maintenance", deps.AdminHandler.GetMaintenance)
			admin.PUT("/maintenance", deps.AdminHandler.SetMaintenance)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
