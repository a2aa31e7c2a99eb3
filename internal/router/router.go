package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/parking-slot-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/parking-slot-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new
	// access token without rotating.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a refresh token in the body, or revokes every
	// session when called with a bearer token and no body.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("USER", "ADMIN", "SUPERADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterDirectory registers lot, zone and slot endpoints under /v1.
// Reads are open to every authenticated role; writes require ADMIN or
// SUPERADMIN.
func RegisterDirectory(e *echo.Echo, h *handler.DirectoryHandler, jwtSecret string) {
	read := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN", "SUPERADMIN"),
	)
	read.GET("/lots", h.ListLots)
	read.GET("/lots/:id", h.GetLot)
	read.GET("/lots/:id/zones", h.ListZones)
	read.GET("/lots/:id/slots", h.ListSlots)
	read.GET("/lots/:id/availability", h.Availability)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "SUPERADMIN"),
	)
	admin.POST("/lots", h.CreateLot)
	admin.POST("/lots/:id/zones", h.CreateZone)
	admin.POST("/lots/:id/slots", h.CreateSlot)
	admin.PATCH("/slots/:id/status", h.SetSlotStatus)
}

// RegisterBookings registers the booking lifecycle endpoints under /v1.
// Every route requires a valid JWT; ownership checks happen in the
// service layer so admins can act on other users' bookings.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN", "SUPERADMIN"),
	)
	g.POST("/bookings", h.Create)
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.PATCH("/bookings/:id", h.Extend)
	g.DELETE("/bookings/:id", h.Cancel)
	g.POST("/bookings/:id/checkin", h.CheckIn)
}

// RegisterPatterns registers recurring pattern endpoints under /v1.
func RegisterPatterns(e *echo.Echo, h *handler.PatternHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN", "SUPERADMIN"),
	)
	g.POST("/patterns", h.Create)
	g.GET("/patterns", h.List)
	g.GET("/patterns/:id", h.Get)
	g.DELETE("/patterns/:id", h.Delete)
}

// RegisterWaitlist registers waitlist and swap endpoints under /v1.
func RegisterWaitlist(e *echo.Echo, h *handler.WaitlistHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN", "SUPERADMIN"),
	)
	g.POST("/waitlist", h.Join)
	g.GET("/waitlist", h.List)
	g.GET("/waitlist/:id", h.Get)
	g.POST("/swaps", h.RequestSwap)
	g.GET("/swaps", h.ListSwaps)
	g.POST("/swaps/:id/accept", h.AcceptSwap)
	g.POST("/swaps/:id/reject", h.RejectSwap)
}
