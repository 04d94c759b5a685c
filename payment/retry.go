package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/stripe/stripe-go"
)

// retry runs call up to maxRetries+1 times, each attempt bounded by the
// gateway timeout. Callers reuse one idempotency key across attempts.
func (g *Gateway) retry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return classify(ctx.Err(), errors.Is(ctx.Err(), context.DeadlineExceeded))
			case <-time.After(g.backoff * time.Duration(attempt)):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		err := call(callCtx)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = classify(err, timedOut)
		if !retryable(err, timedOut) || ctx.Err() != nil {
			return lastErr
		}
		log.Printf("%v attempt %d/%d failed: %v", op, attempt+1, g.maxRetries+1, err)
	}
	return lastErr
}

func classify(err error, timedOut bool) error {
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProvider, err)
}

func retryable(err error, timedOut bool) bool {
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.Type == stripe.ErrorTypeAPIConnection
	}
	// anything else never reached the provider
	return true
}
