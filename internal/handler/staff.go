package handler

// staff.go serves the internal portal: the technician booking board, the
// support desk and the admin dashboard.  Dashboards are pull based; every
// summary carries the time it was computed.

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
)

// StaffBookings is the booking board storage.
type StaffBookings interface {
	List(ctx context.Context, q repository.BookingQuery) ([]model.Booking, int64, error)
	GetByID(ctx context.Context, id string) (model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error)
	ListReadyForPickup(ctx context.Context) ([]model.Booking, error)
}

// Tickets is the support desk storage.
type Tickets interface {
	List(ctx context.Context, status string) ([]model.SupportTicket, error)
	Create(ctx context.Context, t *model.SupportTicket) error
	UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error
}

// CustomerLinker resolves the customer behind a contact email.
type CustomerLinker interface {
	FindOrCreate(ctx context.Context, email, name, phone string) (model.Customer, error)
}

// SalesTotals sums sales for the dashboard.
type SalesTotals interface {
	TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, int, error)
}

// ReorderCounter counts items at or below their minimum stock.
type ReorderCounter interface {
	CountReorderAlerts(ctx context.Context) (int, error)
}

type StaffHandler struct {
	Bookings   StaffBookings
	Tickets    Tickets
	Customers  CustomerLinker
	Sales      SalesTotals
	Stock      ReorderCounter
	Invalidate CacheInvalidator
	Log        *zap.Logger
	now        func() time.Time
}

func NewStaffHandler(bookings StaffBookings, tickets Tickets, customers CustomerLinker, sales SalesTotals,
	stock ReorderCounter, inv CacheInvalidator, log *zap.Logger) *StaffHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StaffHandler{Bookings: bookings, Tickets: tickets, Customers: customers, Sales: sales,
		Stock: stock, Invalidate: inv, Log: log, now: time.Now}
}

// ListBookings filters by ?status=, searches with ?q=, sorts with
// ?sort=created_at|scheduled_date|status|priority and ?order=asc|desc, and
// pages with page and page_size.
func (h *StaffHandler) ListBookings(c echo.Context) error {
	q := repository.BookingQuery{
		Search: c.QueryParam("q"),
		Sort:   c.QueryParam("sort"),
		Desc:   !strings.EqualFold(c.QueryParam("order"), "asc"),
	}
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		st, ok := model.ParseBookingStatus(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		q.Status = string(st)
	}
	q.Page, q.PageSize = pageParams(c)

	ctx, cancel := requestCtx(c)
	defer cancel()
	items, total, err := h.Bookings.List(ctx, q)
	if err != nil {
		logger.FromContext(c, h.Log).Error("list bookings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":         items,
		"total":        total,
		"page":         q.Page,
		"page_size":    q.PageSize,
		"last_updated": h.now().UTC(),
	})
}

func (h *StaffHandler) GetBooking(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, b)
}

// UpdateBookingStatus sets any of the five statuses.  There is no
// transition guard and the last write wins.
func (h *StaffHandler) UpdateBookingStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	st, ok := model.ParseBookingStatus(req.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Bookings.UpdateStatus(ctx, c.Param("id"), st); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	logger.FromContext(c, h.Log).Info("booking status changed",
		zap.String("booking_id", c.Param("id")), zap.String("status", string(st)), zap.String("by", middleware.UserID(c)))
	h.invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "status": st})
}

// DeleteBooking removes a booking permanently (admin only).
func (h *StaffHandler) DeleteBooking(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Bookings.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidate(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *StaffHandler) ListTickets(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Tickets.List(ctx, c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.SupportTicket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "last_updated": h.now().UTC()})
}

func (h *StaffHandler) UpdateTicketStatus(c echo.Context) error {
	var req struct {
		Status model.TicketStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil || !model.ValidTicketStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Tickets.UpdateStatus(ctx, c.Param("id"), req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "status": req.Status})
}

type ticketReq struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Subject  string         `json:"subject"`
	Message  string         `json:"message"`
	Priority model.Priority `json:"priority"`
}

// CreateTicket opens a support ticket from the contact form.  A signed-in
// caller's email wins over the posted one.  Linking the ticket to a customer
// is best effort.
func (h *StaffHandler) CreateTicket(c echo.Context) error {
	var req ticketReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if e := middleware.Email(c); e != "" {
		req.Email = e
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Email == "" || req.Subject == "" || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, subject and message required"})
	}
	switch req.Priority {
	case "", model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown priority"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	t := model.SupportTicket{Email: req.Email, Subject: req.Subject, Message: req.Message, Priority: req.Priority}
	if cust, err := h.Customers.FindOrCreate(ctx, req.Email, req.Name, ""); err == nil {
		t.CustomerID = &cust.ID
	} else {
		logger.FromContext(c, h.Log).Warn("ticket customer link failed", zap.Error(err))
	}
	if err := h.Tickets.Create(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ticket could not be created"})
	}
	return c.JSON(http.StatusCreated, t)
}

type dashboardSummary struct {
	BookingsByStatus map[model.BookingStatus]int `json:"bookings_by_status"`
	ReadyForPickup   int                         `json:"ready_for_pickup"`
	ReorderAlerts    int                         `json:"reorder_alerts"`
	SalesToday       decimal.Decimal             `json:"sales_today"`
	SalesTodayCount  int                         `json:"sales_today_count"`
	OpenTickets      int                         `json:"open_tickets"`
	LastUpdated      time.Time                   `json:"last_updated"`
}

// Dashboard computes the admin summary.  The reads run concurrently and any
// failure fails the whole summary.
func (h *StaffHandler) Dashboard(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	now := h.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var out dashboardSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.BookingsByStatus, err = h.Bookings.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		ready, err := h.Bookings.ListReadyForPickup(gctx)
		out.ReadyForPickup = len(ready)
		return err
	})
	g.Go(func() (err error) {
		out.ReorderAlerts, err = h.Stock.CountReorderAlerts(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.SalesToday, out.SalesTodayCount, err = h.Sales.TotalSince(gctx, dayStart)
		return err
	})
	g.Go(func() error {
		open, err := h.Tickets.List(gctx, string(model.TicketOpen))
		out.OpenTickets = len(open)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContext(c, h.Log).Error("dashboard", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dashboard unavailable"})
	}
	out.SalesToday = out.SalesToday.Round(2)
	out.LastUpdated = now.UTC()
	return c.JSON(http.StatusOK, out)
}

func (h *StaffHandler) invalidate(c echo.Context) {
	if err := h.Invalidate.run(c.Request().Context()); err != nil {
		logger.FromContext(c, h.Log).Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
