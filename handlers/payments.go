package handlers

import (
	"eventhub/middleware"
	"eventhub/model"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) CreatePaymentIntent(c *fiber.Ctx) error {
	type Request struct {
		BookingId primitive.ObjectID `json:"bookingId"`
	}
	var input Request
	if err := parseBody(c, &input); err != nil {
		return fail(c, err)
	}

	intent, err := h.bookings.CreateIntent(c.UserContext(), middleware.Caller(c), input.BookingId)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID})
}

func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	type Request struct {
		PaymentIntentId string `json:"paymentIntentId"`
	}
	var input Request
	if err := parseBody(c, &input); err != nil {
		return fail(c, err)
	}

	if _, err := h.bookings.VerifyPayment(c.UserContext(), middleware.Caller(c), input.PaymentIntentId); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified",
		"data":    fiber.Map{"paymentStatus": model.PaymentCompleted}})
}

// StripeWebhook reads the raw body, the signature covers it byte for byte.
func (h *Handler) StripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	if err := h.bookings.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
