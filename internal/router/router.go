package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartfix/internal/handler"
	"github.com/iliyamo/smartfix/internal/metrics"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
)

// RegisterRoutes registers the probes and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready)
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers the account endpoints.  register and login sit
// behind the tighter write limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, writeLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, writeLimit)
	g.POST("/login", a.Login, writeLimit)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the guest endpoints.  Catalogue reads go through
// the response cache; the booking wizard accepts guests and signed-in
// customers alike.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, b *handler.BookingHandler, s *handler.StaffHandler,
	jwtSecret string, cache, writeLimit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/services", p.Services, cache)
	g.GET("/time-slots", p.TimeSlots)
	g.GET("/content", p.Content, cache)
	g.GET("/content/:key", p.ContentSection, cache)
	g.GET("/zip/:zip", p.ZipCode)
	g.GET("/track/:tracking", p.Track)
	g.GET("/delivery-types", b.DeliveryTypes)

	g.POST("/bookings", b.Submit, middleware.OptionalJWT(jwtSecret), writeLimit)
	g.POST("/support/tickets", s.CreateTicket, middleware.OptionalJWT(jwtSecret), writeLimit)
}

// RegisterCustomer registers the customer portal.
func RegisterCustomer(e *echo.Echo, h *handler.ProfileHandler, jwtSecret string) {
	g := e.Group("/v1/me", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleCustomer))
	g.GET("/profile", h.Get)
}
