package messaging

import (
	"context"
	"time"

	"eventhub/model"
)

const (
	NotificationsExchange = "notifications"
	TopicPrefix           = "notification."
)

// NotificationMessage is published for every stored notification.
type NotificationMessage struct {
	NotificationID string    `json:"notification_id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	EventID        string    `json:"event_id,omitempty"`
	BookingID      string    `json:"booking_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, message interface{}) error
}

type Announcer struct {
	publisher Publisher
}

func NewAnnouncer(publisher Publisher) *Announcer {
	return &Announcer{publisher: publisher}
}

// Announce publishes n under "notification.<type>".
func (a *Announcer) Announce(ctx context.Context, n model.Notification, recipient model.UserData) error {
	return a.publisher.Publish(ctx, TopicPrefix+n.Type, newMessage(n, recipient))
}

func newMessage(n model.Notification, recipient model.UserData) NotificationMessage {
	msg := NotificationMessage{
		NotificationID: n.Id.Hex(),
		Type:           n.Type,
		Message:        n.Message,
		UserID:         n.UserId.Hex(),
		Email:          recipient.Email,
		Name:           recipient.Name,
		CreatedAt:      n.CreatedAt,
	}
	if !n.EventId.IsZero() {
		msg.EventID = n.EventId.Hex()
	}
	if !n.BookingId.IsZero() {
		msg.BookingID = n.BookingId.Hex()
	}
	return msg
}
