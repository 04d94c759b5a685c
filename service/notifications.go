package service

import (
	"context"
	"errors"
	"log"

	"eventhub/clock"
	"eventhub/database"
	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notifications struct {
	store      NotificationStore
	users      UserStore
	announcers []Announcer
	clock      clock.Clock
}

func NewNotifications(store NotificationStore, users UserStore, clk clock.Clock, announcers ...Announcer) *Notifications {
	return &Notifications{
		store:      store,
		users:      users,
		announcers: announcers,
		clock:      clk,
	}
}

func (s *Notifications) List(ctx context.Context, userID primitive.ObjectID) ([]model.Notification, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Notifications) MarkRead(ctx context.Context, userID, id primitive.ObjectID) (*model.Notification, error) {
	n, err := s.store.MarkRead(ctx, userID, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotificationNotFound
	}
	return n, err
}

func (s *Notifications) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Notifications) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	err := s.store.Delete(ctx, userID, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// Notify stores n for its user and then hands it to the announcers.
// Only the store write can fail the call.
func (s *Notifications) Notify(ctx context.Context, n model.Notification) error {
	n.Id = primitive.NewObjectID()
	n.Read = false
	n.CreatedAt = s.clock.Now()

	if err := s.store.Append(ctx, &n); err != nil {
		return err
	}
	s.announce(ctx, n)
	return nil
}

func (s *Notifications) announce(ctx context.Context, n model.Notification) {
	if len(s.announcers) == 0 {
		return
	}

	user, err := s.users.GetByID(ctx, n.UserId)
	if err != nil {
		log.Printf("cannot load user %v for notification %v: %v", n.UserId.Hex(), n.Id.Hex(), err)
		return
	}
	for _, a := range s.announcers {
		if err := a.Announce(ctx, n, *user); err != nil {
			log.Printf("cannot announce notification %v: %v", n.Id.Hex(), err)
		}
	}
}
