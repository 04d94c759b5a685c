package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"eventhub/clock"
	"eventhub/database"
	"eventhub/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxReferenceAttempts = 3

type CreateBookingInput struct {
	EventId         primitive.ObjectID `json:"eventId" validate:"required"`
	Tickets         int                `json:"tickets" validate:"required,min=1"`
	AttendeeDetails []model.Attendee   `json:"attendeeDetails" validate:"dive"`
	PaymentMethod   string             `json:"paymentMethod" validate:"omitempty,oneof=stripe paypal"`
}

type Bookings struct {
	tx            TxRunner
	events        EventStore
	bookings      BookingStore
	gateway       PaymentGateway
	notifications *Notifications
	clock         clock.Clock
}

func NewBookings(tx TxRunner, events EventStore, bookings BookingStore, gateway PaymentGateway, notifications *Notifications, clk clock.Clock) *Bookings {
	return &Bookings{
		tx:            tx,
		events:        events,
		bookings:      bookings,
		gateway:       gateway,
		notifications: notifications,
		clock:         clk,
	}
}

// Create records a pending booking. Tickets are taken from the event only
// once the payment settles.
func (s *Bookings) Create(ctx context.Context, caller model.Identity, in CreateBookingInput) (*model.Booking, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	event, err := s.events.Get(ctx, in.EventId)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if event.AvailableTickets < in.Tickets {
		return nil, ErrNotEnoughTickets
	}
	if event.Status != model.EventActive {
		return nil, ErrEventNotBookable
	}

	method := in.PaymentMethod
	if method == "" {
		method = model.PaymentMethodStripe
	}
	attendees := in.AttendeeDetails
	if attendees == nil {
		attendees = []model.Attendee{}
	}

	now := s.clock.Now()
	booking := &model.Booking{
		Id:              primitive.NewObjectID(),
		User:            caller.UserId,
		Event:           event.Id,
		Tickets:         in.Tickets,
		TotalAmount:     totalAmount(event.Price, in.Tickets),
		PaymentStatus:   model.PaymentPending,
		PaymentMethod:   method,
		AttendeeDetails: attendees,
		Status:          model.BookingConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for attempt := 1; ; attempt++ {
		booking.BookingReference = newBookingReference(now)
		err = s.bookings.Create(ctx, booking)
		if !errors.Is(err, database.ErrDuplicate) || attempt == maxReferenceAttempts {
			break
		}
		log.Printf("booking reference %v already taken, regenerating", booking.BookingReference)
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Bookings) Get(ctx context.Context, caller model.Identity, id primitive.ObjectID) (*model.BookingDetails, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(booking.User) {
		return nil, Errorf(ErrForbidden, "Not authorized to access this booking")
	}

	details, err := s.withEvents(ctx, []model.Booking{*booking})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *Bookings) ListMine(ctx context.Context, caller model.Identity) ([]model.BookingDetails, error) {
	bookings, err := s.bookings.ListByUser(ctx, caller.UserId)
	if err != nil {
		return nil, err
	}
	return s.withEvents(ctx, bookings)
}

func (s *Bookings) ListAll(ctx context.Context) ([]model.BookingDetails, error) {
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.withEvents(ctx, bookings)
}

// Cancel cancels a booking. Tickets go back to the event only when the
// booking had actually been paid for, and that payment is then refunded.
func (s *Bookings) Cancel(ctx context.Context, caller model.Identity, id primitive.ObjectID) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(booking.User) {
		return nil, Errorf(ErrForbidden, "Not authorized to cancel this booking")
	}
	if booking.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	var before *model.Booking
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.Cancel(txCtx, id)
		if err != nil {
			return err
		}
		if b.PaymentStatus == model.PaymentCompleted {
			_, err := s.events.ReleaseTickets(txCtx, b.Event, b.Tickets)
			switch {
			case errors.Is(err, database.ErrNotFound), errors.Is(err, database.ErrCapacityExceeded):
				log.Printf("tickets of booking %v not returned to event %v: %v", b.Id.Hex(), b.Event.Hex(), err)
			case err != nil:
				return err
			}
		}
		before = b
		return nil
	})
	switch {
	case errors.Is(err, database.ErrStaleState):
		return nil, ErrAlreadyCancelled
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrBookingNotFound
	case err != nil:
		return nil, err
	}

	if before.PaymentStatus == model.PaymentCompleted && before.PaymentIntentId != "" {
		s.refund(ctx, before)
	}

	cancelled := *before
	cancelled.Status = model.BookingCancelled
	cancelled.PaymentStatus = model.PaymentRefunded
	cancelled.UpdatedAt = s.clock.Now()

	s.notify(ctx, &cancelled, model.NotificationCancellation, "Your booking for %s has been cancelled.")
	return &cancelled, nil
}

func (s *Bookings) load(ctx context.Context, id primitive.ObjectID) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return booking, err
}

func (s *Bookings) withEvents(ctx context.Context, bookings []model.Booking) ([]model.BookingDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.Event)
	}
	events, err := s.events.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]model.BookingDetails, 0, len(bookings))
	for _, b := range bookings {
		d := model.BookingDetails{Booking: b}
		if event, ok := events[b.Event]; ok {
			d.EventDetails = &event
		}
		details = append(details, d)
	}
	return details, nil
}

// notify tells the booking owner about a change. The booking change has
// already happened, so failures are only logged.
func (s *Bookings) notify(ctx context.Context, booking *model.Booking, kind string, format string) {
	title := "your event"
	if event, err := s.events.Get(ctx, booking.Event); err == nil {
		title = event.Title
	}

	err := s.notifications.Notify(ctx, model.Notification{
		UserId:    booking.User,
		Type:      kind,
		Message:   fmt.Sprintf(format, title),
		EventId:   booking.Event,
		BookingId: booking.Id,
	})
	if err != nil {
		log.Printf("cannot notify user %v about booking %v: %v", booking.User.Hex(), booking.Id.Hex(), err)
	}
}

func totalAmount(price float64, tickets int) float64 {
	return math.Round(price*float64(tickets)*100) / 100
}

// minorUnits converts an amount to the smallest currency unit.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func newBookingReference(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strings.ToUpper("EVT-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + random)
}
