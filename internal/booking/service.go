package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/metrics"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/queue"
	"github.com/iliyamo/smartfix/internal/repository"
	"github.com/iliyamo/smartfix/internal/utils"
)

// ErrUnknownService is returned when the chosen service does not exist or is
// no longer offered.
var ErrUnknownService = errors.New("unknown service")

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
}

// CustomerResolver links a booking to a customer row by contact email.
type CustomerResolver interface {
	FindOrCreate(ctx context.Context, email, name, phone string) (model.Customer, error)
}

// ServiceCatalog looks up the repair service picked on step 1.
type ServiceCatalog interface {
	ServiceByID(ctx context.Context, id string) (model.Service, error)
}

// EventPublisher announces new bookings.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
}

// Service is the Creator used by the HTTP layer.
type Service struct {
	bookings  BookingStore
	customers CustomerResolver
	catalog   ServiceCatalog
	publisher EventPublisher
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService wires the booking service.  publisher and m may be nil.
func NewService(bookings BookingStore, customers CustomerResolver, catalog ServiceCatalog,
	publisher EventPublisher, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{bookings: bookings, customers: customers, catalog: catalog, publisher: publisher,
		log: log.Named("booking"), metrics: m, now: time.Now}
}

// Create stores a Pending booking for req.  The cost estimate is the base
// price of the chosen service and the delivery fee comes from the delivery
// type.  A customer row is resolved from the contact email; when that fails
// the booking is stored as a guest booking.
func (s *Service) Create(ctx context.Context, req Request) (model.Booking, error) {
	svc, err := s.catalog.ServiceByID(ctx, req.ServiceID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !svc.Active) {
		return model.Booking{}, ErrUnknownService
	}
	if err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		CustomerName:     req.Name,
		CustomerEmail:    req.Email,
		CustomerPhone:    req.Phone,
		Device:           req.Device,
		ServiceID:        svc.ID,
		ServiceName:      svc.Name,
		IssueDescription: req.IssueDescription,
		Status:           model.BookingPending,
		Priority:         req.Priority,
		DeliveryType:     req.Delivery.Code,
		Address:          req.Address,
		ScheduledDate:    req.ScheduledDate,
		ScheduledTime:    req.ScheduledTime,
		DeliveryFee:      req.Delivery.Fee,
		Notes:            req.Notes,
	}
	estimate := svc.BasePrice
	b.CostEstimate = &estimate

	if c, err := s.customers.FindOrCreate(ctx, req.Email, req.Name, req.Phone); err == nil {
		b.CustomerID = &c.ID
	} else {
		s.log.Warn("booking customer not linked", zap.String("email", req.Email), zap.Error(err))
	}

	if err := s.insert(ctx, &b); err != nil {
		return model.Booking{}, err
	}
	s.metrics.BookingCreated()
	s.log.Info("booking created", zap.String("booking_id", b.ID), zap.String("tracking", b.TrackingNumber))

	if s.publisher != nil {
		ev := queue.BookingCreatedEvent{
			BookingID:     b.ID, TrackingNumber: b.TrackingNumber, CustomerName: b.CustomerName,
			CustomerEmail: b.CustomerEmail, Device: b.Device.DisplayName(), ServiceName: b.ServiceName,
			DeliveryType:  b.DeliveryType, ScheduledDate: b.ScheduledDate, ScheduledTime: b.ScheduledTime,
			CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		}
		if b.CustomerID != nil {
			ev.CustomerID = *b.CustomerID
		}
		if err := s.publisher.PublishBookingCreated(ctx, ev); err != nil {
			s.log.Warn("publish booking.created failed", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

// insert draws tracking numbers until one is free, up to three attempts.
func (s *Service) insert(ctx context.Context, b *model.Booking) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		b.TrackingNumber, err = utils.TrackingNumber(s.now())
		if err != nil {
			return err
		}
		err = s.bookings.Create(ctx, b)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return err
}
