package database

import (
	"context"
	"testing"

	"eventhub/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestTransitionPayment(t *testing.T) {
	mt := newMock(t)
	defer mt.Close()

	id := primitive.NewObjectID()

	mt.Run("moves a confirmed booking", func(mt *mtest.T) {
		store := NewBookingStore(mockDB(mt))
		mt.AddMockResponses(found(model.Booking{Id: id, Status: model.BookingConfirmed, PaymentStatus: model.PaymentCompleted}))

		booking, err := store.TransitionPayment(context.Background(), id, model.PaymentPending, model.PaymentCompleted)

		require.NoError(mt, err)
		assert.Equal(mt, model.PaymentCompleted, booking.PaymentStatus)

		cmd := sent(mt, "findAndModify")
		assert.Equal(mt, BookingsCollection, cmd.Lookup("findAndModify").StringValue())
		assert.Equal(mt, id, cmd.Lookup("query", "_id").ObjectID())
		assert.Equal(mt, string(model.BookingConfirmed), cmd.Lookup("query", "status").StringValue())
		assert.Equal(mt, string(model.PaymentPending), cmd.Lookup("query", "paymentStatus").StringValue())
		assert.Equal(mt, string(model.PaymentCompleted), cmd.Lookup("update", "$set", "paymentStatus").StringValue())
		assert.True(mt, cmd.Lookup("new").Boolean())
	})

	tests := []struct {
		description string
		count       int
		expected    error
	}{
		{description: "booking in another state", count: 1, expected: ErrStaleState},
		{description: "booking gone", count: 0, expected: ErrNotFound},
	}
	for _, test := range tests {
		test := test
		mt.Run(test.description, func(mt *mtest.T) {
			store := NewBookingStore(mockDB(mt))
			mt.AddMockResponses(unmatched(), counted(mt, BookingsCollection, test.count))

			_, err := store.TransitionPayment(context.Background(), id, model.PaymentPending, model.PaymentCompleted)

			assert.ErrorIs(mt, err, test.expected)
			sent(mt, "findAndModify")
			sent(mt, "aggregate")
		})
	}
}

func TestCancelBooking(t *testing.T) {
	mt := newMock(t)
	defer mt.Close()

	id := primitive.NewObjectID()

	mt.Run("returns the booking as it was", func(mt *mtest.T) {
		store := NewBookingStore(mockDB(mt))
		mt.AddMockResponses(found(model.Booking{Id: id, Status: model.BookingConfirmed, PaymentStatus: model.PaymentCompleted}))

		before, err := store.Cancel(context.Background(), id)

		require.NoError(mt, err)
		assert.Equal(mt, model.PaymentCompleted, before.PaymentStatus)

		cmd := sent(mt, "findAndModify")
		assert.Equal(mt, string(model.BookingCancelled), cmd.Lookup("query", "status", "$ne").StringValue())
		assert.Equal(mt, string(model.BookingCancelled), cmd.Lookup("update", "$set", "status").StringValue())
		assert.Equal(mt, string(model.PaymentRefunded), cmd.Lookup("update", "$set", "paymentStatus").StringValue())
		assert.False(mt, cmd.Lookup("new").Boolean())
	})

	mt.Run("already cancelled", func(mt *mtest.T) {
		store := NewBookingStore(mockDB(mt))
		mt.AddMockResponses(unmatched(), counted(mt, BookingsCollection, 1))

		_, err := store.Cancel(context.Background(), id)

		assert.ErrorIs(mt, err, ErrStaleState)
	})
}

func TestMarkReminderSent(t *testing.T) {
	mt := newMock(t)
	defer mt.Close()

	id := primitive.NewObjectID()

	tests := []struct {
		description string
		modified    int
		expected    bool
	}{
		{description: "claims a paid booking", modified: 1, expected: true},
		{description: "booking already claimed or no longer paid", modified: 0, expected: false},
	}
	for _, test := range tests {
		test := test
		mt.Run(test.description, func(mt *mtest.T) {
			store := NewBookingStore(mockDB(mt))
			mt.AddMockResponses(modified(test.modified))

			claimed, err := store.MarkReminderSent(context.Background(), id)

			require.NoError(mt, err)
			assert.Equal(mt, test.expected, claimed)

			cmd := sent(mt, "update")
			assert.Equal(mt, id, cmd.Lookup("updates", "0", "q", "_id").ObjectID())
			assert.Equal(mt, string(model.BookingConfirmed), cmd.Lookup("updates", "0", "q", "status").StringValue())
			assert.Equal(mt, string(model.PaymentCompleted), cmd.Lookup("updates", "0", "q", "paymentStatus").StringValue())
			assert.False(mt, cmd.Lookup("updates", "0", "q", "reminderSent").Boolean())
			assert.True(mt, cmd.Lookup("updates", "0", "u", "$set", "reminderSent").Boolean())
		})
	}
}
