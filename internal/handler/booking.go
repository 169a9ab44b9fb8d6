package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/booking"
	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/middleware"
)

// BookingHandler accepts submissions of the booking wizard.
type BookingHandler struct {
	Creator    booking.Creator
	Invalidate CacheInvalidator
	Log        *zap.Logger
}

func NewBookingHandler(creator booking.Creator, inv CacheInvalidator, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Creator: creator, Invalidate: inv, Log: log}
}

// bookingReq carries all three wizard steps at once.
type bookingReq struct {
	Device   booking.DeviceDetails   `json:"device"`
	Schedule booking.ScheduleDetails `json:"schedule"`
	Contact  booking.ContactDetails  `json:"contact"`
}

// DeliveryTypes lists the delivery options for step 2.
func (h *BookingHandler) DeliveryTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": booking.DeliveryTypes})
}

// Submit walks a wizard through every step with the posted payload and
// submits it.  The failing step is reported so the client can return the
// user there.
func (h *BookingHandler) Submit(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	w := booking.NewWizard()
	w.Device, w.Schedule, w.Contact = req.Device, req.Schedule, req.Contact
	w.UserID = middleware.UserID(c)
	for w.Step() != booking.StepContact {
		if err := w.Next(); err != nil {
			return stepError(c, w.Step(), err)
		}
	}

	ctx := c.Request().Context()
	b, err := w.Submit(ctx, h.Creator)
	if err != nil {
		var ve *booking.ValidationError
		switch {
		case errors.As(err, &ve), errors.Is(err, booking.ErrPastSchedule):
			return stepError(c, w.Step(), err)
		case errors.Is(err, booking.ErrUnknownService):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "service is not available", "step": booking.StepDevice.String()})
		}
		logger.FromContext(c, h.Log).Error("create booking", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking could not be created, please try again", "step": w.Step().String()})
	}
	if err := h.Invalidate.run(ctx); err != nil {
		logger.FromContext(c, h.Log).Warn("dashboard cache invalidation failed", zap.Error(err))
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"step":            w.Step().String(),
		"tracking_number": b.TrackingNumber,
		"booking":         b,
	})
}

func stepError(c echo.Context, step booking.Step, err error) error {
	body := echo.Map{"error": err.Error(), "step": step.String()}
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		body["step"] = ve.Step.String()
		body["fields"] = ve.Fields
	}
	return c.JSON(http.StatusUnprocessableEntity, body)
}
