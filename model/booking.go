package model

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

const (
	PaymentMethodStripe = "stripe"
	PaymentMethodPaypal = "paypal"
)

type Attendee struct {
	Name  string `json:"name" bson:"name" validate:"required"`
	Email string `json:"email" bson:"email" validate:"required,email"`
}

type Booking struct {
	Id               primitive.ObjectID `json:"_id" bson:"_id"`
	User             primitive.ObjectID `json:"user" bson:"user"`
	Event            primitive.ObjectID `json:"event" bson:"event"`
	Tickets          int                `json:"tickets" bson:"tickets"`
	TotalAmount      float64            `json:"totalAmount" bson:"totalAmount"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus" bson:"paymentStatus"`
	PaymentIntentId  string             `json:"paymentIntentId" bson:"paymentIntentId"`
	PaymentMethod    string             `json:"paymentMethod" bson:"paymentMethod"`
	BookingReference string             `json:"bookingReference" bson:"bookingReference"`
	AttendeeDetails  []Attendee         `json:"attendeeDetails" bson:"attendeeDetails"`
	Status           BookingStatus      `json:"status" bson:"status"`
	ReminderSent     bool               `json:"reminderSent" bson:"reminderSent"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// BookingDetails is a booking with its event populated for reads.
type BookingDetails struct {
	Booking
	EventDetails *Event `json:"-"`
}

// MarshalJSON writes the populated event in place of the event id. A booking
// whose event is gone keeps the bare id.
func (d BookingDetails) MarshalJSON() ([]byte, error) {
	type booking Booking
	out := struct {
		booking
		Event interface{} `json:"event"`
	}{booking: booking(d.Booking), Event: d.Booking.Event}
	if d.EventDetails != nil {
		out.Event = d.EventDetails
	}
	return json.Marshal(out)
}
