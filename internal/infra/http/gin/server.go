package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentspace/internal/infra/config"
	"rentspace/internal/infra/obs"
)

type Handlers struct {
	Listings     *ListingHandler
	Availability *AvailabilityHandler
	Bookings     *BookingHandler
	Reviews      *ReviewsHandler
	Metrics      gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", UserHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(Identity())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", h.Metrics)
	}

	api := router.Group("/api/v1")
	if h.Listings != nil {
		api.POST("/listings", h.Listings.Create)
		api.GET("/listings/:id", h.Listings.Get)
		api.PATCH("/listings/:id", h.Listings.Update)
		api.GET("/listings/:id/quote", h.Listings.Quote)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.POST("/listings/:id/availability/windows", h.Availability.AddWindow)
		api.PUT("/listings/:id/availability/days/:date", h.Availability.SetDay)
	}
	if h.Bookings != nil {
		api.POST("/listings/:id/bookings", h.Bookings.Reserve)
		api.POST("/bookings/:id/pay", h.Bookings.Pay)
		api.POST("/bookings/:id/confirm", h.Bookings.Confirm)
		api.POST("/bookings/:id/cancel", h.Bookings.Cancel)
		api.GET("/me/bookings", h.Bookings.Mine)
		api.GET("/host/bookings", h.Bookings.Host)
	}
	if h.Reviews != nil {
		api.POST("/bookings/:id/review", h.Reviews.Submit)
		api.GET("/listings/:id/reviews", h.Reviews.ListByListing)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
