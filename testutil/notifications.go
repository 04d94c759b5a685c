package testutil

import (
	"context"
	"sort"

	"eventhub/database"
	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationStore struct {
	s *Store
}

func (n *NotificationStore) Append(ctx context.Context, notification *model.Notification) error {
	defer n.s.lock(ctx)()
	if n.s.AppendErr != nil {
		return n.s.AppendErr
	}
	n.s.notifications[notification.Id] = *notification
	return nil
}

func (n *NotificationStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]model.Notification, error) {
	defer n.s.lock(ctx)()
	out := []model.Notification{}
	for _, notification := range n.s.notifications {
		if notification.UserId == userID {
			out = append(out, notification)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (n *NotificationStore) MarkRead(ctx context.Context, userID, id primitive.ObjectID) (*model.Notification, error) {
	defer n.s.lock(ctx)()
	notification, ok := n.s.notifications[id]
	if !ok || notification.UserId != userID {
		return nil, database.ErrNotFound
	}
	notification.Read = true
	n.s.notifications[id] = notification
	return &notification, nil
}

func (n *NotificationStore) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	defer n.s.lock(ctx)()
	var count int64
	for id, notification := range n.s.notifications {
		if notification.UserId == userID && !notification.Read {
			notification.Read = true
			n.s.notifications[id] = notification
			count++
		}
	}
	return count, nil
}

func (n *NotificationStore) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	defer n.s.lock(ctx)()
	notification, ok := n.s.notifications[id]
	if !ok || notification.UserId != userID {
		return database.ErrNotFound
	}
	delete(n.s.notifications, id)
	return nil
}
