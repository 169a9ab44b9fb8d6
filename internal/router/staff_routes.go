package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartfix/internal/handler"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
)

// RegisterStaff registers the internal portal.  Every route needs a valid
// JWT; each group narrows the accepted roles.  ADMIN is accepted everywhere.
func RegisterStaff(e *echo.Echo, s *handler.StaffHandler, jwtSecret string, dashboardCache echo.MiddlewareFunc) {
	board := e.Group("/v1/staff/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEmployee, model.RoleAdmin),
	)
	board.GET("", s.ListBookings)
	board.GET("/:id", s.GetBooking)
	board.PATCH("/:id/status", s.UpdateBookingStatus)

	support := e.Group("/v1/staff/tickets",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleSupport, model.RoleAdmin),
	)
	support.GET("", s.ListTickets)
	support.PATCH("/:id/status", s.UpdateTicketStatus)

	admin := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/dashboard", s.Dashboard, dashboardCache)
	admin.DELETE("/bookings/:id", s.DeleteBooking)
}

// RegisterPOS registers the cashier endpoints.  The cart belongs to the
// signed-in cashier.
func RegisterPOS(e *echo.Echo, p *handler.POSHandler, jwtSecret string) {
	g := e.Group("/v1/pos",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RolePOS, model.RoleAdmin),
	)
	g.GET("/cart", p.GetCart)
	g.DELETE("/cart", p.ClearCart)
	g.POST("/cart/items", p.AddItem)
	g.PATCH("/cart/items/:key", p.UpdateQuantity)
	g.DELETE("/cart/items/:key", p.RemoveItem)
	g.PUT("/cart/discount", p.SetDiscount)
	g.POST("/checkout", p.Checkout)
	g.GET("/ready-for-pickup", p.ReadyForPickup)
}

// RegisterInventory registers stock and purchase order management.
func RegisterInventory(e *echo.Echo, h *handler.InventoryHandler, jwtSecret string) {
	g := e.Group("/v1/inventory",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleInventory, model.RoleAdmin),
	)
	g.GET("/items", h.List)
	g.GET("/alerts", h.ReorderAlerts)
	g.POST("/items/:id/adjust", h.Adjust)
	g.GET("/purchase-orders", h.ListPurchaseOrders)
	g.POST("/purchase-orders", h.CreatePurchaseOrder)
	g.POST("/purchase-orders/:id/:action", h.TransitionPurchaseOrder)
}
