package router // registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/duckluckie/rifa-api/internal/config"
	"github.com/duckluckie/rifa-api/internal/handler"
	"github.com/duckluckie/rifa-api/internal/middleware"
	"github.com/duckluckie/rifa-api/internal/realtime"
)

// Deps bundles everything the routes need.
type Deps struct {
	Products     *handler.ProductHandler
	Reservations *handler.ReservationHandler
	Purchases    *handler.PurchaseHandler
	Webhooks     *handler.WebhookHandler
	Auth         *handler.AuthHandler
	Admin        *handler.AdminHandler
	Hub          *realtime.Hub
	Redis        *redis.Client
	JWTSecret    string
}

// Register wires every route.  Public buyer endpoints are
// unauthenticated; write endpoints are rate limited; product reads go
// through the short-TTL response cache; admin routes require a JWT.
func Register(e *echo.Echo, d Deps) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), d.Redis)

	e.GET("/healthz", handler.Health)

	// Storefront contract.
	e.GET("/products", d.Products.Get, cache)
	e.GET("/products/:slug/buyers", d.Products.Buyers, cache)
	e.POST("/clients", d.Purchases.Create, limiter)
	e.POST("/reservations", d.Reservations.Reserve, limiter)
	e.DELETE("/reservations/:socketId", d.Reservations.Release, limiter)

	// Realtime channel.
	e.GET("/ws", d.Hub.Handle)

	// Payment provider callback.
	e.POST("/webhooks/pix", d.Webhooks.Pix)

	// Admin surface.
	e.POST("/v1/auth/login", d.Auth.Login, limiter)
	admin := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	admin.POST("/products", d.Admin.CreateProduct)
	admin.PATCH("/products/:id/active", d.Admin.SetActive)
}
