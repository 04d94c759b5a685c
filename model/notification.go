package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationBooking      = "booking"
	NotificationCancellation = "cancellation"
	NotificationReminder     = "reminder"
)

type Notification struct {
	Id        primitive.ObjectID `json:"_id" bson:"_id"`
	UserId    primitive.ObjectID `json:"userId" bson:"userId"`
	Type      string             `json:"type" bson:"type"`
	Message   string             `json:"message" bson:"message"`
	EventId   primitive.ObjectID `json:"eventId" bson:"eventId"`
	BookingId primitive.ObjectID `json:"bookingId" bson:"bookingId"`
	Read      bool               `json:"read" bson:"read"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
