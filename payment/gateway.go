package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/client"
)

var (
	ErrProvider         = errors.New("payment provider error")
	ErrTimeout          = errors.New("payment provider timed out")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// Payable reports whether the client can still confirm the intent.
func (i Intent) Payable() bool {
	return i.Status != IntentSucceeded && i.Status != IntentCanceled
}

type IntentRequest struct {
	Amount         int64
	BookingID      string
	UserID         string
	EventID        string
	IdempotencyKey string
}

// IntentAPI is the slice of the stripe payment intent client the gateway uses.
type IntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type RefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
	MaxRetries    int
	Backoff       time.Duration
}

type Gateway struct {
	intents       IntentAPI
	refunds       RefundAPI
	webhookSecret string
	currency      string
	timeout       time.Duration
	maxRetries    int
	backoff       time.Duration
}

// NewGateway builds a gateway around its own stripe client, so the secret
// key never lives in package-level stripe state.
func NewGateway(cfg Config) *Gateway {
	sc := client.New(cfg.SecretKey, nil)
	return NewGatewayWithAPIs(sc.PaymentIntents, sc.Refunds, cfg)
}

func NewGatewayWithAPIs(intents IntentAPI, refunds RefundAPI, cfg Config) *Gateway {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Gateway{
		intents:       intents,
		refunds:       refunds,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		backoff:       cfg.Backoff,
	}
}

func (g *Gateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrProvider)
	}
	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	var pi *stripe.PaymentIntent
	err := g.retry(ctx, "create payment intent", func(callCtx context.Context) error {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(req.Amount),
			Currency: stripe.String(g.currency),
		}
		params.AddMetadata("bookingId", req.BookingID)
		params.AddMetadata("userId", req.UserID)
		params.AddMetadata("eventId", req.EventID)
		params.Context = callCtx
		params.SetIdempotencyKey(idempotencyKey)

		var err error
		pi, err = g.intents.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("payment intent %v created for booking %v", pi.ID, req.BookingID)
	return toIntent(pi), nil
}

func (g *Gateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	var pi *stripe.PaymentIntent
	err := g.retry(ctx, "retrieve payment intent", func(callCtx context.Context) error {
		params := &stripe.PaymentIntentParams{}
		params.Context = callCtx

		var err error
		pi, err = g.intents.Get(id, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

// Refund returns the full amount of a captured intent. The idempotency key
// keeps repeated refunds of the same booking from paying out twice.
func (g *Gateway) Refund(ctx context.Context, intentID string, idempotencyKey string) error {
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}
	return g.retry(ctx, "refund payment intent", func(callCtx context.Context) error {
		params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
		params.Context = callCtx
		params.SetIdempotencyKey(idempotencyKey)

		refund, err := g.refunds.New(params)
		if err == nil {
			log.Printf("refund %v issued for payment intent %v", refund.ID, intentID)
		}
		return err
	})
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}
