package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"eventhub/database"
	"eventhub/model"
	"eventhub/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxSettleAttempts = 3

type PaymentUpdateInput struct {
	PaymentStatus   model.PaymentStatus `json:"paymentStatus" validate:"required,oneof=completed failed"`
	PaymentIntentId string              `json:"paymentIntentId"`
}

var errEventGone = errors.New("event no longer exists")

// CreateIntent prepares a provider payment for the booking. An intent the
// booking already holds is handed out again while it can still be paid.
func (s *Bookings) CreateIntent(ctx context.Context, caller model.Identity, bookingID primitive.ObjectID) (*payment.Intent, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.User != caller.UserId {
		return nil, Errorf(ErrForbidden, "Not authorized")
	}
	if booking.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}
	if booking.PaymentStatus == model.PaymentCompleted {
		return nil, ErrAlreadyPaid
	}

	event, err := s.events.Get(ctx, booking.Event)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if event.AvailableTickets < booking.Tickets {
		return nil, ErrNotEnoughTickets
	}

	amount := minorUnits(booking.TotalAmount)
	idempotencyKey := fmt.Sprintf("booking-%s-intent", booking.Id.Hex())

	if booking.PaymentIntentId != "" {
		existing, err := s.gateway.GetIntent(ctx, booking.PaymentIntentId)
		switch {
		case err != nil:
			// the client may still pay the stored intent, so it is never replaced blind
			return nil, external("Payment provider unavailable", err)
		case existing.Status == payment.IntentSucceeded:
			if _, err := s.settle(ctx, existing); err != nil {
				return nil, err
			}
			return nil, ErrAlreadyPaid
		case existing.Payable() && existing.Amount == amount:
			if booking.PaymentStatus != model.PaymentPending {
				if _, err := s.bookings.SetPaymentIntent(ctx, booking.Id, existing.ID); err != nil {
					return nil, s.intentStoreError(err)
				}
			}
			return existing, nil
		}
		// the stored intent is spent, the next one needs its own key
		idempotencyKey = ""
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:         amount,
		BookingID:      booking.Id.Hex(),
		UserID:         booking.User.Hex(),
		EventID:        booking.Event.Hex(),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, external("Payment provider unavailable", err)
	}

	if _, err := s.bookings.SetPaymentIntent(ctx, booking.Id, intent.ID); err != nil {
		return nil, s.intentStoreError(err)
	}
	return intent, nil
}

func (s *Bookings) intentStoreError(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrBookingNotFound
	case errors.Is(err, database.ErrStaleState):
		return ErrConcurrentUpdate
	}
	return err
}

// VerifyPayment asks the provider about an intent and settles the booking
// that holds it.
func (s *Bookings) VerifyPayment(ctx context.Context, caller model.Identity, intentID string) (*model.Booking, error) {
	if intentID == "" {
		return nil, invalidField("paymentIntentId", "required")
	}
	booking, err := s.bookings.GetByPaymentIntent(ctx, intentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(booking.User) {
		return nil, Errorf(ErrForbidden, "Not authorized to access this booking")
	}
	return s.verify(ctx, intentID)
}

// UpdatePayment is the client-reported payment outcome. A reported success
// is only trusted after the provider confirms it.
func (s *Bookings) UpdatePayment(ctx context.Context, caller model.Identity, bookingID primitive.ObjectID, in PaymentUpdateInput) (*model.Booking, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(booking.User) {
		return nil, Errorf(ErrForbidden, "Not authorized to access this booking")
	}

	if in.PaymentStatus == model.PaymentFailed {
		return s.failPayment(ctx, booking)
	}
	if in.PaymentIntentId == "" || in.PaymentIntentId != booking.PaymentIntentId {
		return nil, ErrIntentMismatch
	}
	return s.verify(ctx, in.PaymentIntentId)
}

// HandleWebhook applies a signed provider event. Outcomes the provider
// cannot fix by redelivering are logged and acknowledged.
func (s *Bookings) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	switch event.Type {
	case payment.EventIntentSucceeded:
		_, err = s.settle(ctx, event.Intent)
	case payment.EventIntentFailed:
		var booking *model.Booking
		booking, err = s.bookings.GetByPaymentIntent(ctx, event.Intent.ID)
		if errors.Is(err, database.ErrNotFound) {
			err = ErrBookingNotFound
		} else if err == nil {
			_, err = s.failPayment(ctx, booking)
		}
	default:
		log.Printf("webhook event %v of type %v ignored", event.ID, event.Type)
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) {
		log.Printf("webhook event %v for intent %v not applied: %v", event.ID, event.Intent.ID, err)
		return nil
	}
	return err
}

func (s *Bookings) verify(ctx context.Context, intentID string) (*model.Booking, error) {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, external("Payment provider unavailable", err)
	}
	if intent.Status != payment.IntentSucceeded {
		return nil, ErrPaymentNotCompleted
	}
	return s.settle(ctx, intent)
}

// settle marks the booking holding a succeeded intent as paid and takes its
// tickets from the event in one transaction. Settling twice is a no-op. When
// the event ran out of tickets or the booking was cancelled meanwhile, the
// payment is refunded.
func (s *Bookings) settle(ctx context.Context, intent *payment.Intent) (*model.Booking, error) {
	if intent == nil || intent.ID == "" {
		return nil, ErrBookingNotFound
	}

	for attempt := 0; attempt < maxSettleAttempts; attempt++ {
		booking, err := s.bookings.GetByPaymentIntent(ctx, intent.ID)
		if errors.Is(err, database.ErrNotFound) {
			if err := s.adopt(ctx, intent); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if booking.Status == model.BookingCancelled {
			s.refund(ctx, booking)
			return nil, ErrBookingCancelled
		}
		switch booking.PaymentStatus {
		case model.PaymentCompleted:
			return booking, nil
		case model.PaymentPending, model.PaymentFailed:
		default:
			return nil, Errorf(ErrInvalidState, "Booking payment is %s", booking.PaymentStatus)
		}
		if intent.Amount != minorUnits(booking.TotalAmount) {
			return nil, ErrAmountMismatch
		}

		from := booking.PaymentStatus
		var settled *model.Booking
		err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
			b, err := s.bookings.TransitionPayment(txCtx, booking.Id, from, model.PaymentCompleted)
			if err != nil {
				return err
			}
			_, err = s.events.ReserveTickets(txCtx, b.Event, b.Tickets)
			if errors.Is(err, database.ErrNotFound) {
				return errEventGone
			}
			if err != nil {
				return err
			}
			settled = b
			return nil
		})

		switch {
		case err == nil:
			log.Printf("booking %v paid with intent %v", settled.Id.Hex(), intent.ID)
			s.notify(ctx, settled, model.NotificationBooking, "Your booking for %s has been confirmed!")
			return settled, nil
		case errors.Is(err, database.ErrStaleState):
			continue
		case errors.Is(err, database.ErrInsufficientTickets):
			s.reject(ctx, booking, from)
			return nil, ErrSoldOut
		case errors.Is(err, errEventGone):
			s.reject(ctx, booking, from)
			return nil, ErrEventNotFound
		default:
			return nil, err
		}
	}
	return nil, ErrConcurrentUpdate
}

// adopt handles a succeeded intent no booking holds any more, which happens
// when a booking was handed a newer intent after this one. A booking that can
// still be paid takes the intent over; otherwise the payment goes back.
func (s *Bookings) adopt(ctx context.Context, intent *payment.Intent) error {
	bookingID, err := primitive.ObjectIDFromHex(intent.Metadata["bookingId"])
	if err != nil {
		return ErrBookingNotFound
	}
	booking, err := s.load(ctx, bookingID)
	if errors.Is(err, ErrBookingNotFound) {
		s.refundIntent(ctx, bookingID, intent.ID)
		return err
	}
	if err != nil {
		return err
	}
	if booking.PaymentIntentId == intent.ID {
		return nil
	}

	_, err = s.bookings.SetPaymentIntent(ctx, booking.Id, intent.ID)
	switch {
	case err == nil:
		log.Printf("booking %v took over paid intent %v from %v", booking.Id.Hex(), intent.ID, booking.PaymentIntentId)
		return nil
	case errors.Is(err, database.ErrStaleState):
		// paid through another intent or cancelled
		s.refundIntent(ctx, booking.Id, intent.ID)
		return Errorf(ErrInvalidState, "Booking %v cannot take payment %v", booking.Id.Hex(), intent.ID)
	case errors.Is(err, database.ErrNotFound):
		s.refundIntent(ctx, booking.Id, intent.ID)
		return ErrBookingNotFound
	}
	return err
}

// reject undoes a captured payment that cannot be honoured.
func (s *Bookings) reject(ctx context.Context, booking *model.Booking, from model.PaymentStatus) {
	if from != model.PaymentFailed {
		if _, err := s.bookings.TransitionPayment(ctx, booking.Id, from, model.PaymentFailed); err != nil {
			log.Printf("cannot mark payment of booking %v failed: %v", booking.Id.Hex(), err)
		}
	}
	s.refund(ctx, booking)
}

func (s *Bookings) failPayment(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	failed, err := s.bookings.TransitionPayment(ctx, booking.Id, model.PaymentPending, model.PaymentFailed)
	if err == nil {
		return failed, nil
	}
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if !errors.Is(err, database.ErrStaleState) {
		return nil, err
	}

	latest, err := s.load(ctx, booking.Id)
	if err != nil {
		return nil, err
	}
	if latest.Status == model.BookingConfirmed && latest.PaymentStatus == model.PaymentFailed {
		return latest, nil
	}
	return nil, Errorf(ErrInvalidState, "Booking payment is %s", latest.PaymentStatus)
}

func (s *Bookings) refund(ctx context.Context, booking *model.Booking) {
	if booking.PaymentIntentId == "" {
		return
	}
	key := fmt.Sprintf("booking-%s-refund", booking.Id.Hex())
	if err := s.gateway.Refund(ctx, booking.PaymentIntentId, key); err != nil {
		log.Printf("cannot refund intent %v of booking %v: %v", booking.PaymentIntentId, booking.Id.Hex(), err)
	}
}

// refundIntent returns a payment made through an intent the booking no
// longer holds.
func (s *Bookings) refundIntent(ctx context.Context, bookingID primitive.ObjectID, intentID string) {
	key := fmt.Sprintf("booking-%s-refund-%s", bookingID.Hex(), intentID)
	if err := s.gateway.Refund(ctx, intentID, key); err != nil {
		log.Printf("cannot refund orphaned intent %v of booking %v: %v", intentID, bookingID.Hex(), err)
	}
}
