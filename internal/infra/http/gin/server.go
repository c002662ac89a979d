package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"warehub/internal/infra/config"
	"warehub/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Listing        ListingHTTP
	Booking        BookingHTTP
	Conversation   ConversationHTTP
	Review         ReviewHTTP
	Inquiry        InquiryHTTP
	Media          gin.HandlerFunc
	AuthMiddleware gin.HandlerFunc
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

// NewRouter wires every route. Handlers left nil are not mounted.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Media != nil {
		router.GET("/media/*key", h.Media)
	}

	api := router.Group("/api/v1")
	if h.AuthMiddleware != nil {
		api.Use(h.AuthMiddleware)
	}
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}

	listings := api.Group("/listings/:id")
	owner := api.Group("/owner")
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Search)
		listings.GET("", h.Listing.Get)
		owner.GET("/listings", h.Listing.OwnerList)
		owner.POST("/listings", h.Listing.Create)
		owner.PUT("/listings/:id", h.Listing.Update)
		owner.DELETE("/listings/:id", h.Listing.Delete)
	}
	if h.Booking != nil {
		listings.GET("/availability", h.Booking.Availability)
		listings.POST("/reservations", h.Booking.Request)
		api.GET("/me/reservations", h.Booking.CustomerReservations)
		owner.GET("/reservations", h.Booking.OwnerReservations)
		owner.GET("/reservations/stream", h.Booking.Stream)
		owner.POST("/reservations/:id/confirm", h.Booking.Confirm)
		owner.POST("/reservations/:id/reject", h.Booking.Reject)
	}
	if h.Review != nil {
		listings.GET("/reviews", h.Review.List)
		listings.POST("/reviews", h.Review.Submit)
		listings.GET("/reviews/eligibility", h.Review.Eligibility)
	}
	if h.Inquiry != nil {
		listings.POST("/inquiries", h.Inquiry.Submit)
		owner.GET("/inquiries", h.Inquiry.OwnerList)
	}
	if h.Conversation != nil {
		conversations := api.Group("/conversations")
		conversations.GET("", h.Conversation.List)
		conversations.GET("/:listingId/:customerId/messages", h.Conversation.Messages)
		conversations.POST("/:listingId/:customerId/messages", h.Conversation.Post)
		conversations.GET("/:listingId/:customerId/stream", h.Conversation.Stream)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
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
