package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/webhook"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

type WebhookEvent struct {
	ID     string
	Type   string
	Intent *Intent
}

// ParseWebhook verifies the Stripe-Signature header against the webhook
// secret before looking at the payload.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	parsed := &WebhookEvent{ID: event.ID, Type: event.Type}
	if strings.HasPrefix(event.Type, "payment_intent.") {
		if event.Data == nil {
			return nil, fmt.Errorf("%w: event %v has no data", ErrMalformedEvent, event.ID)
		}
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		parsed.Intent = toIntent(&pi)
	}
	return parsed, nil
}
