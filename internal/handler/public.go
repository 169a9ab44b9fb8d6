package handler

// public.go serves the unauthenticated catalogue: services, time slots,
// website copy, ZIP auto-fill and booking tracking.

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
	"github.com/iliyamo/smartfix/internal/zipcode"
)

// Catalog is the read side of services, slots and website content.
type Catalog interface {
	ActiveServices(ctx context.Context) ([]model.Service, error)
	AvailableTimeSlots(ctx context.Context, day time.Time) ([]model.TimeSlot, error)
	PublishedContent(ctx context.Context) ([]model.ContentSection, error)
	ContentByKey(ctx context.Context, key string) (model.ContentSection, error)
}

// ZipLookup resolves a ZIP code to a place.
type ZipLookup interface {
	Lookup(ctx context.Context, zip string) (zipcode.Place, error)
}

// TrackingSource finds a booking by its tracking number.
type TrackingSource interface {
	GetByTrackingNumber(ctx context.Context, tracking string) (model.Booking, error)
}

type PublicHandler struct {
	Catalog  Catalog
	Zip      ZipLookup
	Bookings TrackingSource
	Log      *zap.Logger
	now      func() time.Time
}

func NewPublicHandler(catalog Catalog, zip ZipLookup, bookings TrackingSource, log *zap.Logger) *PublicHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{Catalog: catalog, Zip: zip, Bookings: bookings, Log: log, now: time.Now}
}

// Services lists the active repair services.  ?category= filters
// case-insensitively.
func (h *PublicHandler) Services(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Catalog.ActiveServices(ctx)
	if err != nil {
		logger.FromContext(c, h.Log).Error("list services", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if cat := strings.TrimSpace(c.QueryParam("category")); cat != "" {
		filtered := items[:0:0]
		for _, s := range items {
			if strings.EqualFold(s.Category, cat) {
				filtered = append(filtered, s)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []model.Service{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// TimeSlots returns the slots of ?date=YYYY-MM-DD (default today).  Past
// dates are rejected.
func (h *PublicHandler) TimeSlots(c echo.Context) error {
	today := h.now().Format("2006-01-02")
	raw := strings.TrimSpace(c.QueryParam("date"))
	if raw == "" {
		raw = today
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if raw < today {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is in the past"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	slots, err := h.Catalog.AvailableTimeSlots(ctx, day)
	if err != nil {
		logger.FromContext(c, h.Log).Error("time slots", zap.String("date", raw), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if slots == nil {
		slots = []model.TimeSlot{}
	}
	return c.JSON(http.StatusOK, echo.Map{"date": raw, "items": slots})
}

// Content returns every published website section.
func (h *PublicHandler) Content(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Catalog.PublishedContent(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.ContentSection{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ContentSection returns one published section by key.
func (h *PublicHandler) ContentSection(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	cs, err := h.Catalog.ContentByKey(ctx, c.Param("key"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, cs)
}

// ZipCode resolves /zip/:zip for address auto-fill.
func (h *PublicHandler) ZipCode(c echo.Context) error {
	p, err := h.Zip.Lookup(c.Request().Context(), c.Param("zip"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, p)
	case errors.Is(err, zipcode.ErrInvalidZip):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, zipcode.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "zip code not found"})
	default:
		logger.FromContext(c, h.Log).Warn("zip lookup failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "zip lookup unavailable"})
	}
}

type trackingView struct {
	TrackingNumber string              `json:"tracking_number"`
	Status         model.BookingStatus `json:"status"`
	Device         string              `json:"device"`
	ServiceName    string              `json:"service_name,omitempty"`
	ScheduledDate  string              `json:"scheduled_date"`
	ScheduledTime  string              `json:"scheduled_time"`
	DeliveryType   string              `json:"delivery_type"`
	CostEstimate   *decimal.Decimal    `json:"cost_estimate,omitempty"`
	ReadyForPickup bool                `json:"ready_for_pickup"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Track shows the public status of a booking.  Contact details are never
// part of the response.
func (h *PublicHandler) Track(c echo.Context) error {
	tn := strings.ToUpper(strings.TrimSpace(c.Param("tracking")))
	if tn == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tracking number required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	b, err := h.Bookings.GetByTrackingNumber(ctx, tn)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, trackingView{
		TrackingNumber: b.TrackingNumber,
		Status:         b.Status,
		Device:         b.Device.DisplayName(),
		ServiceName:    b.ServiceName,
		ScheduledDate:  b.ScheduledDate,
		ScheduledTime:  b.ScheduledTime,
		DeliveryType:   b.DeliveryType,
		CostEstimate:   b.CostEstimate,
		ReadyForPickup: b.ReadyForPickup(),
		UpdatedAt:      b.UpdatedAt,
	})
}
