package service

import (
	"errors"
	"sync"
	"testing"

	"eventhub/model"
	"eventhub/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 2)

	intent := &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method", Amount: 20000}
	env.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req payment.IntentRequest) bool {
		return req.Amount == 20000 &&
			req.IdempotencyKey == "booking-"+booking.Id.Hex()+"-intent" &&
			req.BookingID == booking.Id.Hex() &&
			req.UserID == caller.UserId.Hex() &&
			req.EventID == event.Id.Hex()
	})).Return(intent, nil).Once()

	got, err := env.bookings.CreateIntent(env.ctx, caller, booking.Id)

	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", got.ClientSecret)
	assert.Equal(t, "pi_1", env.store.Booking(booking.Id).PaymentIntentId)

	// a second request hands out the same, still payable intent
	env.gateway.On("GetIntent", mock.Anything, "pi_1").Return(intent, nil).Once()

	again, err := env.bookings.CreateIntent(env.ctx, caller, booking.Id)

	require.NoError(t, err)
	assert.Equal(t, "pi_1", again.ID)
	env.gateway.AssertNumberOfCalls(t, "CreateIntent", 1)
}

func TestCreateIntentReplacesSpentIntent(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 1)
	_, err := env.store.Bookings().SetPaymentIntent(env.ctx, booking.Id, "pi_old")
	require.NoError(t, err)

	env.gateway.On("GetIntent", mock.Anything, "pi_old").
		Return(&payment.Intent{ID: "pi_old", Status: payment.IntentCanceled, Amount: 10000}, nil)
	env.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req payment.IntentRequest) bool {
		return req.IdempotencyKey == ""
	})).Return(&payment.Intent{ID: "pi_new", Amount: 10000}, nil)

	got, err := env.bookings.CreateIntent(env.ctx, caller, booking.Id)

	require.NoError(t, err)
	assert.Equal(t, "pi_new", got.ID)
	assert.Equal(t, "pi_new", env.store.Booking(booking.Id).PaymentIntentId)
}

func TestCreateIntentRejects(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.addUser(t, model.RoleUser)
	_, admin := env.addUser(t, model.RoleAdmin)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))

	pending := env.book(t, owner, event, 1)
	paid := env.book(t, owner, event, 1)
	env.pay(t, owner, paid)

	_, err := env.bookings.CreateIntent(env.ctx, admin, pending.Id)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = env.bookings.CreateIntent(env.ctx, owner, paid.Id)
	assert.True(t, errors.Is(err, ErrInvalidState))

	env.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, payment.ErrTimeout)
	_, err = env.bookings.CreateIntent(env.ctx, owner, pending.Id)
	assert.True(t, errors.Is(err, ErrExternalService))
	assert.True(t, errors.Is(err, payment.ErrTimeout))
	assert.Empty(t, env.store.Booking(pending.Id).PaymentIntentId)
}

func TestVerifyPaymentSettlesOnce(t *testing.T) {
	env := newTestEnv(t)
	user, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 2)
	intentID := env.attachIntent(t, booking)

	for i := 0; i < 2; i++ {
		settled, err := env.bookings.VerifyPayment(env.ctx, caller, intentID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentCompleted, settled.PaymentStatus)
	}

	assert.Equal(t, 8, env.store.Event(event.Id).AvailableTickets)

	notes := env.store.NotificationsFor(caller.UserId)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationBooking, notes[0].Type)
	assert.Equal(t, "Your booking for Go Conference has been confirmed!", notes[0].Message)
	assert.Equal(t, booking.Id, notes[0].BookingId)

	require.Len(t, env.announcer.recipients, 1)
	assert.Equal(t, user.Email, env.announcer.recipients[0].Email)
}

func TestVerifyPaymentNotSucceeded(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	_, stranger := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 1)
	_, err := env.store.Bookings().SetPaymentIntent(env.ctx, booking.Id, "pi_wait")
	require.NoError(t, err)

	env.gateway.On("GetIntent", mock.Anything, "pi_wait").
		Return(&payment.Intent{ID: "pi_wait", Status: "processing", Amount: 10000}, nil)

	_, err = env.bookings.VerifyPayment(env.ctx, caller, "pi_wait")
	assert.True(t, errors.Is(err, ErrPaymentNotCompleted))
	assert.Equal(t, model.PaymentPending, env.store.Booking(booking.Id).PaymentStatus)
	assert.Equal(t, 10, env.store.Event(event.Id).AvailableTickets)

	_, err = env.bookings.VerifyPayment(env.ctx, stranger, "pi_wait")
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = env.bookings.VerifyPayment(env.ctx, caller, "pi_unknown")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestVerifyPaymentAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 1)
	_, err := env.store.Bookings().SetPaymentIntent(env.ctx, booking.Id, "pi_cheap")
	require.NoError(t, err)

	env.gateway.On("GetIntent", mock.Anything, "pi_cheap").
		Return(&payment.Intent{ID: "pi_cheap", Status: payment.IntentSucceeded, Amount: 1}, nil)

	_, err = env.bookings.VerifyPayment(env.ctx, caller, "pi_cheap")

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, model.PaymentPending, env.store.Booking(booking.Id).PaymentStatus)
}

func TestSettleSoldOutRefunds(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 1, 100, testNow.AddDate(0, 1, 0))
	first := env.book(t, caller, event, 1)
	second := env.book(t, caller, event, 1)

	env.pay(t, caller, first)
	intentID := env.attachIntent(t, second)
	env.gateway.On("Refund", mock.Anything, intentID, "booking-"+second.Id.Hex()+"-refund").Return(nil).Once()

	_, err := env.bookings.VerifyPayment(env.ctx, caller, intentID)

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, model.PaymentFailed, env.store.Booking(second.Id).PaymentStatus)
	stored := env.store.Event(event.Id)
	assert.Equal(t, 0, stored.AvailableTickets)
	assert.Equal(t, model.EventSoldOut, stored.Status)
	env.gateway.AssertExpectations(t)
}

func TestConcurrentPaymentsForLastTicket(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.addUser(t, model.RoleUser)
	_, bob := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 1, 100, testNow.AddDate(0, 1, 0))

	callers := []model.Identity{alice, bob}
	intents := make([]string, len(callers))
	for i, caller := range callers {
		intents[i] = env.attachIntent(t, env.book(t, caller, event, 1))
	}
	env.gateway.On("Refund", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	errs := make([]error, len(callers))
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bookings.VerifyPayment(env.ctx, callers[i], intents[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrInvalidState), err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, env.store.Event(event.Id).AvailableTickets)
	env.gateway.AssertNumberOfCalls(t, "Refund", 1)
}

func TestLatePaymentOnCancelledBooking(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 5, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 1)
	intentID := env.attachIntent(t, booking)

	_, err := env.bookings.Cancel(env.ctx, caller, booking.Id)
	require.NoError(t, err)

	env.gateway.On("Refund", mock.Anything, intentID, "booking-"+booking.Id.Hex()+"-refund").Return(nil).Once()

	_, err = env.bookings.VerifyPayment(env.ctx, caller, intentID)

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, 5, env.store.Event(event.Id).AvailableTickets)
	env.gateway.AssertExpectations(t)
}

func TestUpdatePayment(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 5, 100, testNow.AddDate(0, 1, 0))

	booking := env.book(t, caller, event, 1)
	intentID := env.attachIntent(t, booking)

	_, err := env.bookings.UpdatePayment(env.ctx, caller, booking.Id, PaymentUpdateInput{
		PaymentStatus: model.PaymentCompleted, PaymentIntentId: "pi_forged",
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = env.bookings.UpdatePayment(env.ctx, caller, booking.Id, PaymentUpdateInput{PaymentStatus: model.PaymentRefunded})
	assert.True(t, errors.Is(err, ErrValidation))

	paid, err := env.bookings.UpdatePayment(env.ctx, caller, booking.Id, PaymentUpdateInput{
		PaymentStatus: model.PaymentCompleted, PaymentIntentId: intentID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, paid.PaymentStatus)
	assert.Equal(t, 4, env.store.Event(event.Id).AvailableTickets)

	_, err = env.bookings.UpdatePayment(env.ctx, caller, booking.Id, PaymentUpdateInput{PaymentStatus: model.PaymentFailed})
	assert.True(t, errors.Is(err, ErrInvalidState))

	unpaid := env.book(t, caller, event, 1)
	failed, err := env.bookings.UpdatePayment(env.ctx, caller, unpaid.Id, PaymentUpdateInput{PaymentStatus: model.PaymentFailed})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, failed.PaymentStatus)
}

func TestHandleWebhook(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 5, 100, testNow.AddDate(0, 1, 0))
	paid := env.book(t, caller, event, 2)
	paidIntent := env.attachIntent(t, paid)
	declined := env.book(t, caller, event, 1)
	declinedIntent := env.attachIntent(t, declined)

	env.gateway.On("ParseWebhook", []byte("forged"), "bad").Return(nil, payment.ErrInvalidSignature)
	env.gateway.On("ParseWebhook", []byte("succeeded"), "sig").Return(&payment.WebhookEvent{
		ID: "evt_1", Type: payment.EventIntentSucceeded,
		Intent: &payment.Intent{ID: paidIntent, Status: payment.IntentSucceeded, Amount: 20000},
	}, nil)
	env.gateway.On("ParseWebhook", []byte("failed"), "sig").Return(&payment.WebhookEvent{
		ID: "evt_2", Type: payment.EventIntentFailed,
		Intent: &payment.Intent{ID: declinedIntent, Status: "requires_payment_method", Amount: 10000},
	}, nil)
	env.gateway.On("ParseWebhook", []byte("other"), "sig").Return(&payment.WebhookEvent{
		ID: "evt_3", Type: "charge.refunded",
	}, nil)
	env.gateway.On("ParseWebhook", []byte("orphan"), "sig").Return(&payment.WebhookEvent{
		ID: "evt_4", Type: payment.EventIntentSucceeded,
		Intent: &payment.Intent{ID: "pi_nobody", Status: payment.IntentSucceeded, Amount: 100},
	}, nil)

	err := env.bookings.HandleWebhook(env.ctx, []byte("forged"), "bad")
	assert.True(t, errors.Is(err, payment.ErrInvalidSignature))
	assert.Equal(t, 5, env.store.Event(event.Id).AvailableTickets)
	assert.Equal(t, model.PaymentPending, env.store.Booking(paid.Id).PaymentStatus)

	require.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("succeeded"), "sig"))
	require.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("succeeded"), "sig"))
	assert.Equal(t, model.PaymentCompleted, env.store.Booking(paid.Id).PaymentStatus)
	assert.Equal(t, 3, env.store.Event(event.Id).AvailableTickets)

	require.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("failed"), "sig"))
	assert.Equal(t, model.PaymentFailed, env.store.Booking(declined.Id).PaymentStatus)

	assert.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("other"), "sig"))
	assert.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("orphan"), "sig"))
}

func TestFailedPaymentCanStillSucceed(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 5, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 1)
	intentID := env.attachIntent(t, booking)

	_, err := env.bookings.UpdatePayment(env.ctx, caller, booking.Id, PaymentUpdateInput{PaymentStatus: model.PaymentFailed})
	require.NoError(t, err)

	settled, err := env.bookings.VerifyPayment(env.ctx, caller, intentID)

	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, settled.PaymentStatus)
	assert.Equal(t, 4, env.store.Event(event.Id).AvailableTickets)
}

func TestCreateIntentKeepsStoredIntentWhenLookupFails(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 10, 100, testNow.AddDate(0, 1, 0))
	booking := env.book(t, caller, event, 1)
	_, err := env.store.Bookings().SetPaymentIntent(env.ctx, booking.Id, "pi_first")
	require.NoError(t, err)

	env.gateway.On("GetIntent", mock.Anything, "pi_first").Return(nil, payment.ErrProvider)

	_, err = env.bookings.CreateIntent(env.ctx, caller, booking.Id)

	assert.True(t, errors.Is(err, ErrExternalService))
	assert.Equal(t, "pi_first", env.store.Booking(booking.Id).PaymentIntentId)
	env.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestWebhookForReplacedIntent(t *testing.T) {
	env := newTestEnv(t)
	_, caller := env.addUser(t, model.RoleUser)
	event := env.addEvent(t, 5, 100, testNow.AddDate(0, 1, 0))

	pending := env.book(t, caller, event, 1)
	_, err := env.store.Bookings().SetPaymentIntent(env.ctx, pending.Id, "pi_second")
	require.NoError(t, err)

	paid := env.book(t, caller, event, 2)
	env.pay(t, caller, paid)

	replaced := func(intentID string, booking *model.Booking, amount int64) *payment.WebhookEvent {
		return &payment.WebhookEvent{
			ID:   "evt_" + intentID,
			Type: payment.EventIntentSucceeded,
			Intent: &payment.Intent{
				ID:       intentID,
				Status:   payment.IntentSucceeded,
				Amount:   amount,
				Metadata: map[string]string{"bookingId": booking.Id.Hex()},
			},
		}
	}
	env.gateway.On("ParseWebhook", []byte("pending"), "sig").Return(replaced("pi_first", pending, 10000), nil)
	env.gateway.On("ParseWebhook", []byte("paid"), "sig").Return(replaced("pi_extra", paid, 20000), nil)
	env.gateway.On("Refund", mock.Anything, "pi_extra", "booking-"+paid.Id.Hex()+"-refund-pi_extra").Return(nil).Once()

	// a booking still waiting for payment takes the older intent over
	require.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("pending"), "sig"))
	stored := env.store.Booking(pending.Id)
	assert.Equal(t, model.PaymentCompleted, stored.PaymentStatus)
	assert.Equal(t, "pi_first", stored.PaymentIntentId)
	assert.Equal(t, 2, env.store.Event(event.Id).AvailableTickets)

	// a booking paid through another intent gets the extra payment refunded
	require.NoError(t, env.bookings.HandleWebhook(env.ctx, []byte("paid"), "sig"))
	assert.Equal(t, model.PaymentCompleted, env.store.Booking(paid.Id).PaymentStatus)
	assert.Equal(t, 2, env.store.Event(event.Id).AvailableTickets)
	env.gateway.AssertExpectations(t)
}
