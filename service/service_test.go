package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventhub/clock"
	"eventhub/model"
	"eventhub/payment"
	"eventhub/testutil"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	args := m.Called(ctx, req)
	intent, _ := args.Get(0).(*payment.Intent)
	return intent, args.Error(1)
}

func (m *mockGateway) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	args := m.Called(ctx, id)
	intent, _ := args.Get(0).(*payment.Intent)
	return intent, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, intentID string, idempotencyKey string) error {
	args := m.Called(ctx, intentID, idempotencyKey)
	return args.Error(0)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	event, _ := args.Get(0).(*payment.WebhookEvent)
	return event, args.Error(1)
}

type recordingAnnouncer struct {
	mu         sync.Mutex
	recipients []model.UserData
	sent       []model.Notification
	err        error
}

func (a *recordingAnnouncer) Announce(ctx context.Context, n model.Notification, recipient model.UserData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, n)
	a.recipients = append(a.recipients, recipient)
	return a.err
}

type testEnv struct {
	ctx           context.Context
	store         *testutil.Store
	gateway       *mockGateway
	announcer     *recordingAnnouncer
	notifications *Notifications
	events        *Events
	bookings      *Bookings
	reminders     *Reminders
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewStore()
	gateway := &mockGateway{}
	announcer := &recordingAnnouncer{}
	clk := clock.NewFixed(testNow)

	notifications := NewNotifications(store.Notifications(), store.Users(), clk, announcer)
	return &testEnv{
		ctx:           context.Background(),
		store:         store,
		gateway:       gateway,
		announcer:     announcer,
		notifications: notifications,
		events:        NewEvents(store.Events(), clk),
		bookings:      NewBookings(store, store.Events(), store.Bookings(), gateway, notifications, clk),
		reminders:     NewReminders(store.Events(), store.Bookings(), notifications, clk),
	}
}

func (e *testEnv) addEvent(t *testing.T, tickets int, price float64, date time.Time) model.Event {
	t.Helper()
	event := testutil.NewEvent(tickets, price, date)
	require.NoError(t, e.store.Events().Create(e.ctx, &event))
	return event
}

func (e *testEnv) addUser(t *testing.T, role string) (model.UserData, model.Identity) {
	t.Helper()
	user := testutil.NewUser(role)
	require.NoError(t, e.store.Users().Create(e.ctx, &user))
	return user, model.Identity{UserId: user.Id, Role: role}
}

func (e *testEnv) book(t *testing.T, caller model.Identity, event model.Event, tickets int) *model.Booking {
	t.Helper()
	booking, err := e.bookings.Create(e.ctx, caller, CreateBookingInput{
		EventId: event.Id,
		Tickets: tickets,
		AttendeeDetails: []model.Attendee{
			{Name: "Ada", Email: "ada@example.com"},
		},
	})
	require.NoError(t, err)
	return booking
}

// attachIntent gives booking a provider intent that the mocked provider
// reports as succeeded.
func (e *testEnv) attachIntent(t *testing.T, booking *model.Booking) string {
	t.Helper()
	intentID := "pi_" + booking.Id.Hex()
	_, err := e.store.Bookings().SetPaymentIntent(e.ctx, booking.Id, intentID)
	require.NoError(t, err)

	e.gateway.On("GetIntent", mock.Anything, intentID).Return(&payment.Intent{
		ID:     intentID,
		Status: payment.IntentSucceeded,
		Amount: minorUnits(booking.TotalAmount),
	}, nil)
	return intentID
}

func (e *testEnv) pay(t *testing.T, caller model.Identity, booking *model.Booking) string {
	t.Helper()
	intentID := e.attachIntent(t, booking)
	_, err := e.bookings.VerifyPayment(e.ctx, caller, intentID)
	require.NoError(t, err)
	return intentID
}
