package handlers

import (
	"eventhub/middleware"
	"eventhub/model"
	"eventhub/service"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	var input service.CreateBookingInput
	if err := parseBody(c, &input); err != nil {
		return fail(c, err)
	}

	booking, err := h.bookings.Create(c.UserContext(), middleware.Caller(c), input)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusCreated, booking)
}

func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	bookings, err := h.bookings.ListMine(c.UserContext(), middleware.Caller(c))
	if err != nil {
		return fail(c, err)
	}
	return bookingList(c, bookings)
}

func (h *Handler) GetBookings(c *fiber.Ctx) error {
	bookings, err := h.bookings.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return bookingList(c, bookings)
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	booking, err := h.bookings.Get(c.UserContext(), middleware.Caller(c), id)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, booking)
}

func (h *Handler) UpdatePaymentStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var input service.PaymentUpdateInput
	if err := parseBody(c, &input); err != nil {
		return fail(c, err)
	}

	booking, err := h.bookings.UpdatePayment(c.UserContext(), middleware.Caller(c), id, input)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, booking)
}

func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	booking, err := h.bookings.Cancel(c.UserContext(), middleware.Caller(c), id)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, booking)
}

func bookingList(c *fiber.Ctx, bookings []model.BookingDetails) error {
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(bookings),
		"data":    bookings})
}
