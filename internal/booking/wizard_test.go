package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/queue"
	"github.com/iliyamo/smartfix/internal/repository"
)

// --- Mocks ---

type MockCreator struct{ mock.Mock }

func (m *MockCreator) Create(ctx context.Context, req Request) (model.Booking, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Booking), args.Error(1)
}

func fixedNow() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }

func filledWizard(delivery string) *Wizard {
	w := NewWizard()
	w.now = fixedNow
	w.Device = DeviceDetails{
		Device:           model.Device{Type: "phone", Brand: "Apple", Model: "iPhone 13"},
		ServiceID:        "svc-screen",
		IssueDescription: "Cracked screen after a drop",
	}
	w.Schedule = ScheduleDetails{DeliveryType: delivery, Date: "2026-10-20", Time: "10:30"}
	w.Contact = ContactDetails{Name: "Ann Lee", Email: "Ann@Example.com ", Phone: "555-0100"}
	return w
}

func advance(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	require.Equal(t, StepContact, w.Step())
}

// --- Tests ---

func TestWizard_LinearNavigation(t *testing.T) {
	w := filledWizard("in_store")
	assert.Equal(t, StepDevice, w.Step())
	assert.ErrorIs(t, w.Back(), ErrNoPrevStep)

	require.NoError(t, w.Next())
	assert.Equal(t, StepSchedule, w.Step())
	require.NoError(t, w.Back())
	assert.Equal(t, StepDevice, w.Step())

	advance(t, w)
	assert.ErrorIs(t, w.Next(), ErrNoNextStep)
}

func TestWizard_StepValidationBlocksNext(t *testing.T) {
	w := filledWizard("in_store")
	w.Device.Device.Brand = ""
	err := w.Next()

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, StepDevice, ve.Step)
	assert.Contains(t, ve.Fields, "brand")
	assert.Equal(t, StepDevice, w.Step())
}

func TestWizard_AddressOnlyWhenRequired(t *testing.T) {
	t.Run("in_store proceeds with empty address", func(t *testing.T) {
		w := filledWizard("in_store")
		assert.False(t, w.AddressRequired())
		require.NoError(t, w.Next())
		require.NoError(t, w.Next())
		assert.Equal(t, StepContact, w.Step())
	})

	t.Run("mobile needs an address", func(t *testing.T) {
		w := filledWizard("mobile")
		assert.True(t, w.AddressRequired())
		require.NoError(t, w.Next())

		var ve *ValidationError
		require.ErrorAs(t, w.Next(), &ve)
		assert.Contains(t, ve.Fields, "street")

		w.Schedule.Address = model.Address{Street: "1 Main St", City: "Austin", State: "TX", Zip: "73301"}
		require.NoError(t, w.Next())
	})

	t.Run("unknown delivery type", func(t *testing.T) {
		w := filledWizard("drone")
		require.NoError(t, w.Next())
		var ve *ValidationError
		require.ErrorAs(t, w.Next(), &ve)
		assert.Equal(t, StepSchedule, ve.Step)
	})

	t.Run("past date", func(t *testing.T) {
		w := filledWizard("in_store")
		w.Schedule.Date = "2026-10-15"
		require.NoError(t, w.Next())
		assert.ErrorIs(t, w.Next(), ErrPastSchedule)
	})
}

func TestWizard_SubmitWithoutContactNeverCallsCreator(t *testing.T) {
	w := filledWizard("in_store")
	advance(t, w)
	w.Contact.Phone = ""

	creator := new(MockCreator)
	assert.False(t, w.CanSubmit())
	_, err := w.Submit(context.Background(), creator)
	assert.Error(t, err)
	creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, StepContact, w.Step())
}

func TestWizard_SubmitFailureStaysOnContact(t *testing.T) {
	w := filledWizard("in_store")
	advance(t, w)

	creator := new(MockCreator)
	creator.On("Create", mock.Anything, mock.Anything).Return(model.Booking{}, errors.New("db down")).Once()
	_, err := w.Submit(context.Background(), creator)
	assert.EqualError(t, err, "db down")
	assert.Equal(t, StepContact, w.Step())
	assert.EqualError(t, w.Err(), "db down")

	creator.On("Create", mock.Anything, mock.Anything).Return(model.Booking{ID: "b1", TrackingNumber: "SFX261016ABC123"}, nil).Once()
	b, err := w.Submit(context.Background(), creator)
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, w.Step())
	assert.Equal(t, "SFX261016ABC123", b.TrackingNumber)
	assert.NoError(t, w.Err())
}

func TestWizard_SubmitComposesRequest(t *testing.T) {
	w := filledWizard("pickup_delivery")
	w.Schedule.Address = model.Address{Street: "1 Main St", City: "Austin", State: "TX", Zip: "73301"}
	w.UserID = "u1"
	advance(t, w)

	creator := new(MockCreator)
	creator.On("Create", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.Email == "ann@example.com" &&
			r.Priority == model.PriorityNormal &&
			r.Delivery.Code == "pickup_delivery" && r.Delivery.Fee.Equal(decimal.NewFromInt(15)) &&
			r.Address != nil && r.Address.City == "Austin" &&
			r.UserID == "u1"
	})).Return(model.Booking{ID: "b1"}, nil).Once()

	_, err := w.Submit(context.Background(), creator)
	require.NoError(t, err)
	creator.AssertExpectations(t)
}

// --- Service ---

type MockStore struct{ mock.Mock }

func (m *MockStore) Create(ctx context.Context, b *model.Booking) error { return m.Called(ctx, b).Error(0) }

type MockCustomers struct{ mock.Mock }

func (m *MockCustomers) FindOrCreate(ctx context.Context, email, name, phone string) (model.Customer, error) {
	args := m.Called(ctx, email, name, phone)
	return args.Get(0).(model.Customer), args.Error(1)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) ServiceByID(ctx context.Context, id string) (model.Service, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Service), args.Error(1)
}

type MockEvents struct{ mock.Mock }

func (m *MockEvents) PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func TestService_Create(t *testing.T) {
	store, customers, catalog, events := new(MockStore), new(MockCustomers), new(MockCatalog), new(MockEvents)
	svc := NewService(store, customers, catalog, events, nil, nil)
	svc.now = fixedNow

	catalog.On("ServiceByID", mock.Anything, "svc-screen").
		Return(model.Service{ID: "svc-screen", Name: "Screen repair", BasePrice: decimal.NewFromInt(129), Active: true}, nil)
	customers.On("FindOrCreate", mock.Anything, "ann@example.com", "Ann", "555").Return(model.Customer{ID: "c1"}, nil)
	store.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict).Once()
	store.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	events.On("PublishBookingCreated", mock.Anything, mock.MatchedBy(func(ev queue.BookingCreatedEvent) bool {
		return ev.CustomerID == "c1" && ev.Device == "Apple iPad"
	})).Return(nil).Once()

	d, _ := LookupDeliveryType("mobile")
	b, err := svc.Create(context.Background(), Request{
		Device:   model.Device{Type: "tablet", Brand: "Apple", Model: "iPad"}, ServiceID: "svc-screen",
		Delivery: d, Name: "Ann", Email: "ann@example.com", Phone: "555", Priority: model.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^SFX261016[A-Z0-9]{6}$`, b.TrackingNumber)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.True(t, b.DeliveryFee.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, b.CostEstimate)
	assert.True(t, b.CostEstimate.Equal(decimal.NewFromInt(129)))
	require.NotNil(t, b.CustomerID)
	assert.Equal(t, "c1", *b.CustomerID)
	store.AssertNumberOfCalls(t, "Create", 2)
	events.AssertExpectations(t)
}

func TestService_CreateUnknownService(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("ServiceByID", mock.Anything, "gone").Return(model.Service{}, repository.ErrNotFound)
	svc := NewService(new(MockStore), new(MockCustomers), catalog, nil, nil, nil)

	_, err := svc.Create(context.Background(), Request{ServiceID: "gone"})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestService_CreateGuestWhenCustomerFails(t *testing.T) {
	store, customers, catalog := new(MockStore), new(MockCustomers), new(MockCatalog)
	catalog.On("ServiceByID", mock.Anything, "s").Return(model.Service{ID: "s", Active: true}, nil)
	customers.On("FindOrCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(model.Customer{}, errors.New("denied"))
	store.On("Create", mock.Anything, mock.MatchedBy(func(b *model.Booking) bool { return b.CustomerID == nil })).Return(nil)

	svc := NewService(store, customers, catalog, nil, nil, nil)
	b, err := svc.Create(context.Background(), Request{ServiceID: "s", Email: "x@example.com"})
	require.NoError(t, err)
	assert.Nil(t, b.CustomerID)
}
