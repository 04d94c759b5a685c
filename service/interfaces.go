package service

import (
	"context"
	"time"

	"eventhub/model"
	"eventhub/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	Get(ctx context.Context, id primitive.ObjectID) (*model.Event, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.Event, error)
	List(ctx context.Context, q model.EventQuery) ([]model.Event, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, patch model.EventPatch) (*model.Event, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ReserveTickets(ctx context.Context, id primitive.ObjectID, n int) (*model.Event, error)
	ReleaseTickets(ctx context.Context, id primitive.ObjectID, n int) (*model.Event, error)
	ListStartingBetween(ctx context.Context, from, to time.Time, statuses []model.EventStatus) ([]model.Event, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	Get(ctx context.Context, id primitive.ObjectID) (*model.Booking, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) (*model.Booking, error)
	TransitionPayment(ctx context.Context, id primitive.ObjectID, from, to model.PaymentStatus) (*model.Booking, error)
	Cancel(ctx context.Context, id primitive.ObjectID) (*model.Booking, error)
	ListReminderCandidates(ctx context.Context, eventID primitive.ObjectID) ([]model.Booking, error)
	MarkReminderSent(ctx context.Context, id primitive.ObjectID) (bool, error)
	ClearReminderSent(ctx context.Context, id primitive.ObjectID) error
}

type NotificationStore interface {
	Append(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id primitive.ObjectID) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.UserData, error)
}

// TxRunner runs fn so that every store call made with the ctx it receives
// commits or aborts together.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	GetIntent(ctx context.Context, id string) (*payment.Intent, error)
	Refund(ctx context.Context, intentID string, idempotencyKey string) error
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// Announcer pushes a stored notification to an outside channel.
type Announcer interface {
	Announce(ctx context.Context, n model.Notification, recipient model.UserData) error
}
