package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/imanzi/transit-seat-booking/internal/config"
	"github.com/imanzi/transit-seat-booking/internal/handler"
	"github.com/imanzi/transit-seat-booking/internal/middleware"
	"github.com/imanzi/transit-seat-booking/internal/model"
)

// Handlers bundles everything the router needs to register.
type Handlers struct {
	Auth     *handler.AuthHandler
	Trips    *handler.TripHandler
	Bookings *handler.BookingHandler
	Ops      *handler.OpsHandler
}

// Register wires every route. The public surface is the health check
// and the cached trip browse; everything else sits behind JWT auth,
// with the operational endpoints restricted to staff. rdb may be nil,
// in which case rate limiting and response caching are disabled.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cached := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Guests can browse trips before registering. Responses are cached
	// briefly in Redis so browse traffic stays off MySQL.
	e.GET("/v1/trips", h.Trips.Browse, cached)

	// Unauthenticated session operations. Rate limited so credential
	// stuffing burns through the bucket, not bcrypt.
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)

	// Authenticated endpoints. Both roles may book and cancel; staff
	// additionally books on behalf of customers via the same route.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.RequireRole(model.RoleCustomer, model.RoleStaff))
	auth.GET("/me", h.Auth.Me)
	auth.POST("/bookings", h.Bookings.Create, limiter)
	auth.GET("/bookings", h.Bookings.ListMine)
	auth.DELETE("/bookings/:id", h.Bookings.Cancel)

	// Staff-only operational endpoints.
	ops := e.Group("/v1/ops")
	ops.Use(middleware.JWTAuth(cfg.JWTSecret))
	ops.Use(middleware.RequireRole(model.RoleStaff))
	ops.POST("/trips/generate", h.Ops.Generate)
	ops.GET("/readiness", h.Ops.Readiness)
}
