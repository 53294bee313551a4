// Package router registers the HTTP routes of the API.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client) {
	e.GET("/healthz", handler.Health(db, rdb))
}

// RegisterAuth registers register/login/refresh under /v1/auth and logout
// behind JWT auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))
}

// RegisterUser registers the caller's profile endpoints.
func RegisterUser(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	g := e.Group("/v1/users",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.GET("/me", u.Me)
	g.PUT("/me", u.UpdateMe)
}

// RegisterPublic registers the catalog reads.  They need no token and go
// through the response cache.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/hotels", h.ListHotels, cache)
	e.GET("/v1/hotels/:id", h.GetHotel, cache)
	e.GET("/v1/hotels/:id/rooms", h.ListRooms, cache)
	e.GET("/v1/rooms/:id", h.GetRoom, cache)
}

// RegisterBookings registers the booking endpoints.  Any authenticated
// role may book; the rate limiter runs after authentication so it can key
// on the user.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("", b.Create, limiter)
	g.PATCH("/:id/cancel", b.Cancel, limiter)
	g.GET("", b.List)
	g.GET("/:id", b.Get)
}

// RegisterAdmin registers catalog management, account administration and
// payment completion.  Every route requires the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, c *handler.CatalogHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/hotels", c.CreateHotel)
	g.PUT("/hotels/:id", c.UpdateHotel)
	g.DELETE("/hotels/:id", c.DeleteHotel)
	g.POST("/hotels/:id/rooms", c.CreateRoom)
	g.PUT("/rooms/:id", c.UpdateRoom)
	g.DELETE("/rooms/:id", c.DeleteRoom)

	g.POST("/admins", a.CreateAdmin)
	g.GET("/admins", a.ListAdmins)
	g.DELETE("/admins/:id", a.DeleteAdmin)
	g.GET("/users", a.ListUsers)
	g.PATCH("/users/:id/promote", a.Promote)
	g.PATCH("/users/:id/demote", a.Demote)

	g.PATCH("/payments/:id/complete", a.CompletePayment)
}
