package testutil

import (
	"context"
	"sort"
	"time"

	"eventhub/database"
	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStore struct {
	s *Store
}

func (b *BookingStore) Create(ctx context.Context, booking *model.Booking) error {
	defer b.s.lock(ctx)()
	for _, existing := range b.s.bookings {
		if existing.BookingReference == booking.BookingReference {
			return database.ErrDuplicate
		}
	}
	b.s.bookings[booking.Id] = *booking
	return nil
}

func (b *BookingStore) Get(ctx context.Context, id primitive.ObjectID) (*model.Booking, error) {
	defer b.s.lock(ctx)()
	booking, ok := b.s.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &booking, nil
}

func (b *BookingStore) GetByPaymentIntent(ctx context.Context, intentID string) (*model.Booking, error) {
	defer b.s.lock(ctx)()
	if intentID == "" {
		return nil, database.ErrNotFound
	}
	for _, booking := range b.s.bookings {
		if booking.PaymentIntentId == intentID {
			return &booking, nil
		}
	}
	return nil, database.ErrNotFound
}

func (b *BookingStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]model.Booking, error) {
	return b.filter(ctx, func(booking model.Booking) bool { return booking.User == userID }), nil
}

func (b *BookingStore) ListAll(ctx context.Context) ([]model.Booking, error) {
	return b.filter(ctx, func(model.Booking) bool { return true }), nil
}

func (b *BookingStore) SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) (*model.Booking, error) {
	return b.update(ctx, id,
		func(booking model.Booking) bool {
			return booking.Status == model.BookingConfirmed &&
				(booking.PaymentStatus == model.PaymentPending || booking.PaymentStatus == model.PaymentFailed)
		},
		func(booking *model.Booking) {
			booking.PaymentIntentId = intentID
			booking.PaymentStatus = model.PaymentPending
		}, false)
}

func (b *BookingStore) TransitionPayment(ctx context.Context, id primitive.ObjectID, from, to model.PaymentStatus) (*model.Booking, error) {
	return b.update(ctx, id,
		func(booking model.Booking) bool {
			return booking.Status == model.BookingConfirmed && booking.PaymentStatus == from
		},
		func(booking *model.Booking) { booking.PaymentStatus = to }, false)
}

func (b *BookingStore) Cancel(ctx context.Context, id primitive.ObjectID) (*model.Booking, error) {
	return b.update(ctx, id,
		func(booking model.Booking) bool { return booking.Status != model.BookingCancelled },
		func(booking *model.Booking) {
			booking.Status = model.BookingCancelled
			booking.PaymentStatus = model.PaymentRefunded
		}, true)
}

func (b *BookingStore) ListReminderCandidates(ctx context.Context, eventID primitive.ObjectID) ([]model.Booking, error) {
	return b.filter(ctx, func(booking model.Booking) bool {
		return booking.Event == eventID &&
			booking.Status == model.BookingConfirmed &&
			booking.PaymentStatus == model.PaymentCompleted &&
			!booking.ReminderSent
	}), nil
}

func (b *BookingStore) MarkReminderSent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return b.flipReminder(ctx, id, func(booking model.Booking) bool {
		return !booking.ReminderSent &&
			booking.Status == model.BookingConfirmed &&
			booking.PaymentStatus == model.PaymentCompleted
	}, true), nil
}

func (b *BookingStore) ClearReminderSent(ctx context.Context, id primitive.ObjectID) error {
	b.flipReminder(ctx, id, func(booking model.Booking) bool { return booking.ReminderSent }, false)
	return nil
}

func (b *BookingStore) flipReminder(ctx context.Context, id primitive.ObjectID, match func(model.Booking) bool, to bool) bool {
	defer b.s.lock(ctx)()
	booking, ok := b.s.bookings[id]
	if !ok || !match(booking) {
		return false
	}
	booking.ReminderSent = to
	b.s.bookings[id] = booking
	return true
}

func (b *BookingStore) update(ctx context.Context, id primitive.ObjectID, match func(model.Booking) bool, apply func(*model.Booking), returnBefore bool) (*model.Booking, error) {
	defer b.s.lock(ctx)()

	booking, ok := b.s.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if !match(booking) {
		return nil, database.ErrStaleState
	}
	before := booking
	apply(&booking)
	booking.UpdatedAt = time.Now().UTC()
	b.s.bookings[id] = booking

	if returnBefore {
		return &before, nil
	}
	return &booking, nil
}

func (b *BookingStore) filter(ctx context.Context, keep func(model.Booking) bool) []model.Booking {
	defer b.s.lock(ctx)()
	out := []model.Booking{}
	for _, booking := range b.s.bookings {
		if keep(booking) {
			out = append(out, booking)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
