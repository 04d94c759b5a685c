package database

import (
	"context"
	"fmt"
	"time"

	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingStore struct {
	coll *mongo.Collection
}

func NewBookingStore(db *DB) *BookingStore {
	return &BookingStore{coll: db.Collection(BookingsCollection)}
}

func (s *BookingStore) Create(ctx context.Context, booking *model.Booking) error {
	_, err := s.coll.InsertOne(ctx, booking)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("cannot insert booking: %w", err)
	}
	return nil
}

func (s *BookingStore) Get(ctx context.Context, id primitive.ObjectID) (*model.Booking, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *BookingStore) GetByPaymentIntent(ctx context.Context, intentID string) (*model.Booking, error) {
	if intentID == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"paymentIntentId": intentID})
}

func (s *BookingStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]model.Booking, error) {
	return s.find(ctx, bson.M{"user": userID})
}

func (s *BookingStore) ListAll(ctx context.Context) ([]model.Booking, error) {
	return s.find(ctx, bson.M{})
}

// SetPaymentIntent records the provider intent unless the booking has
// already been paid or cancelled.
func (s *BookingStore) SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) (*model.Booking, error) {
	filter := bson.M{
		"_id":           id,
		"status":        model.BookingConfirmed,
		"paymentStatus": bson.M{"$in": bson.A{model.PaymentPending, model.PaymentFailed}},
	}
	update := bson.M{"$set": bson.M{
		"paymentIntentId": intentID,
		"paymentStatus":   model.PaymentPending,
		"updatedAt":       time.Now().UTC(),
	}}
	return s.compareAndSet(ctx, id, filter, update, options.After)
}

// TransitionPayment moves a confirmed booking's payment from one state to
// another. ErrStaleState means the booking was not in the expected state.
func (s *BookingStore) TransitionPayment(ctx context.Context, id primitive.ObjectID, from, to model.PaymentStatus) (*model.Booking, error) {
	filter := bson.M{"_id": id, "status": model.BookingConfirmed, "paymentStatus": from}
	update := bson.M{"$set": bson.M{"paymentStatus": to, "updatedAt": time.Now().UTC()}}
	return s.compareAndSet(ctx, id, filter, update, options.After)
}

// Cancel flips a booking to cancelled/refunded and returns the booking as it
// was before, so the caller can tell whether payment had completed.
func (s *BookingStore) Cancel(ctx context.Context, id primitive.ObjectID) (*model.Booking, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": model.BookingCancelled}}
	update := bson.M{"$set": bson.M{
		"status":        model.BookingCancelled,
		"paymentStatus": model.PaymentRefunded,
		"updatedAt":     time.Now().UTC(),
	}}
	return s.compareAndSet(ctx, id, filter, update, options.Before)
}

func (s *BookingStore) ListReminderCandidates(ctx context.Context, eventID primitive.ObjectID) ([]model.Booking, error) {
	return s.find(ctx, bson.M{
		"event":         eventID,
		"status":        model.BookingConfirmed,
		"paymentStatus": model.PaymentCompleted,
		"reminderSent":  false,
	})
}

// MarkReminderSent claims the reminder for a paid, confirmed booking. Only
// the first caller gets true.
func (s *BookingStore) MarkReminderSent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.flipReminder(ctx, bson.M{
		"_id":           id,
		"status":        model.BookingConfirmed,
		"paymentStatus": model.PaymentCompleted,
		"reminderSent":  false,
	}, true)
}

func (s *BookingStore) ClearReminderSent(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.flipReminder(ctx, bson.M{"_id": id, "reminderSent": true}, false)
	return err
}

func (s *BookingStore) flipReminder(ctx context.Context, filter bson.M, to bool) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"reminderSent": to, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return false, fmt.Errorf("cannot update reminder flag: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *BookingStore) compareAndSet(ctx context.Context, id primitive.ObjectID, filter, update bson.M, returnDoc options.ReturnDocument) (*model.Booking, error) {
	var booking model.Booking
	opts := options.FindOneAndUpdate().SetReturnDocument(returnDoc)
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err == nil {
		return &booking, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("cannot update booking: %w", err)
	}

	found, err := exists(ctx, s.coll, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("cannot read booking: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return nil, ErrStaleState
}

func (s *BookingStore) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	var booking model.Booking
	if err := s.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		return nil, notFoundOr(err)
	}
	return &booking, nil
}

func (s *BookingStore) find(ctx context.Context, filter bson.M) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list bookings: %w", err)
	}
	bookings := []model.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("cannot decode bookings: %w", err)
	}
	return bookings, nil
}
