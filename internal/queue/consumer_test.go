package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/model"
)

type MockRecords struct {
	mock.Mock
}

func (m *MockRecords) CreateNotification(ctx context.Context, n *model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockRecords) AwardPoints(ctx context.Context, customerID string, points int, description string) error {
	return m.Called(ctx, customerID, points, description).Error(0)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleBookingCreated(t *testing.T) {
	t.Run("stores notification for known customer", func(t *testing.T) {
		recs := new(MockRecords)
		recs.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
			return n.CustomerID == "c1" && n.Type == "booking" && n.Title == "Booking received"
		})).Return(nil).Once()

		c := NewConsumer("", recs, recs, nil)
		err := c.HandleBookingCreated(context.Background(), mustJSON(t, BookingCreatedEvent{
			BookingID: "b1", TrackingNumber: "SFX261016ABCDEF", CustomerID: "c1", Device: "Apple iPhone 13",
		}))
		require.NoError(t, err)
		recs.AssertExpectations(t)
	})

	t.Run("guest booking is ignored", func(t *testing.T) {
		recs := new(MockRecords)
		c := NewConsumer("", recs, recs, nil)
		require.NoError(t, c.HandleBookingCreated(context.Background(), mustJSON(t, BookingCreatedEvent{BookingID: "b2"})))
		recs.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := NewConsumer("", new(MockRecords), new(MockRecords), nil)
		assert.Error(t, c.HandleBookingCreated(context.Background(), []byte("{")))
	})
}

func TestHandleSaleCompleted(t *testing.T) {
	t.Run("one point per whole unit", func(t *testing.T) {
		recs := new(MockRecords)
		recs.On("AwardPoints", mock.Anything, "c1", 24, "Purchase RCP-20261016-AAAAAA").Return(nil).Once()

		c := NewConsumer("", recs, recs, nil)
		err := c.HandleSaleCompleted(context.Background(), mustJSON(t, SaleCompletedEvent{
			ReceiptNumber: "RCP-20261016-AAAAAA", CustomerID: "c1", Total: decimal.RequireFromString("24.30"),
		}))
		require.NoError(t, err)
		recs.AssertExpectations(t)
	})

	t.Run("award failure is returned", func(t *testing.T) {
		recs := new(MockRecords)
		recs.On("AwardPoints", mock.Anything, "c1", 100, mock.Anything).Return(errors.New("db down")).Once()

		c := NewConsumer("", recs, recs, nil)
		err := c.HandleSaleCompleted(context.Background(), mustJSON(t, SaleCompletedEvent{
			CustomerID: "c1", Total: decimal.NewFromInt(100),
		}))
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("walk-in sale awards nothing", func(t *testing.T) {
		recs := new(MockRecords)
		c := NewConsumer("", recs, recs, nil)
		require.NoError(t, c.HandleSaleCompleted(context.Background(), mustJSON(t, SaleCompletedEvent{Total: decimal.NewFromInt(50)})))
		recs.AssertNotCalled(t, "AwardPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
