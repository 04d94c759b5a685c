package testutil

import (
	"context"
	"errors"
	"sync"

	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// Store is an in-memory stand-in for the mongo stores. Writes follow the
// same conditional rules and return the same database errors. WithTx runs
// its function alone and rolls every change back when it fails.
type Store struct {
	mu            sync.Mutex
	events        map[primitive.ObjectID]model.Event
	bookings      map[primitive.ObjectID]model.Booking
	notifications map[primitive.ObjectID]model.Notification
	users         map[primitive.ObjectID]model.UserData

	// AppendErr, when set, fails every notification write.
	AppendErr error
}

func NewStore() *Store {
	return &Store{
		events:        map[primitive.ObjectID]model.Event{},
		bookings:      map[primitive.ObjectID]model.Booking{},
		notifications: map[primitive.ObjectID]model.Notification{},
		users:         map[primitive.ObjectID]model.UserData{},
	}
}

func (s *Store) Events() *EventStore {
	return &EventStore{s: s}
}

func (s *Store) Bookings() *BookingStore {
	return &BookingStore{s: s}
}

func (s *Store) Notifications() *NotificationStore {
	return &NotificationStore{s: s}
}

func (s *Store) Users() *UserStore {
	return &UserStore{s: s}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if fn == nil {
		return errors.New("nil transaction function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock guards a single store call. Calls made inside WithTx already hold the lock.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type snapshot struct {
	events        map[primitive.ObjectID]model.Event
	bookings      map[primitive.ObjectID]model.Booking
	notifications map[primitive.ObjectID]model.Notification
	users         map[primitive.ObjectID]model.UserData
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		events:        copyMap(s.events),
		bookings:      copyMap(s.bookings),
		notifications: copyMap(s.notifications),
		users:         copyMap(s.users),
	}
}

func (s *Store) restore(snap snapshot) {
	s.events = snap.events
	s.bookings = snap.bookings
	s.notifications = snap.notifications
	s.users = snap.users
}

func copyMap[V any](m map[primitive.ObjectID]V) map[primitive.ObjectID]V {
	out := make(map[primitive.ObjectID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Event returns the stored event, for assertions.
func (s *Store) Event(id primitive.ObjectID) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

// Booking returns the stored booking, for assertions.
func (s *Store) Booking(id primitive.ObjectID) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

// NotificationsFor returns the stored notifications of a user in no particular order.
func (s *Store) NotificationsFor(userID primitive.ObjectID) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserId == userID {
			out = append(out, n)
		}
	}
	return out
}
