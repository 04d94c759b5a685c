package router

import (
	"eventhub/handlers"
	"eventhub/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Config struct {
	SigningKey  string
	CORSOrigins string
}

func SetupRoutes(app *fiber.App, h *handlers.Handler, config Config) {
	origins := config.CORSOrigins
	if origins == "" {
		origins = "*"
	}

	api := app.Group("/api", logger.New(), recover.New(), cors.New(cors.Config{AllowOrigins: origins}))
	api.Get("/health", h.Health)

	authorized := middleware.Authorize(config.SigningKey)
	admin := middleware.RequireAdmin()

	//Auth
	auth := api.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/register", h.Register)

	//Events
	events := api.Group("/events")
	events.Get("/", h.GetEvents)
	events.Get("/:id", h.GetEvent)
	events.Get("/:id/availability", h.CheckAvailability)
	events.Post("/", authorized, admin, h.CreateEvent)
	events.Put("/:id", authorized, admin, h.UpdateEvent)
	events.Delete("/:id", authorized, admin, h.DeleteEvent)

	//Bookings
	bookings := api.Group("/bookings", authorized)
	bookings.Post("/", h.CreateBooking)
	bookings.Get("/my-bookings", h.GetMyBookings)
	bookings.Get("/", admin, h.GetBookings)
	bookings.Get("/:id", h.GetBooking)
	bookings.Put("/:id/payment", h.UpdatePaymentStatus)
	bookings.Put("/:id/cancel", h.CancelBooking)

	//Payments
	payments := api.Group("/payments")
	payments.Post("/webhook", h.StripeWebhook)
	payments.Post("/create-intent", authorized, h.CreatePaymentIntent)
	payments.Post("/verify", authorized, h.VerifyPayment)

	//Notifications
	notifications := api.Group("/notifications", authorized)
	notifications.Get("/", h.GetNotifications)
	notifications.Put("/read-all", h.MarkAllNotificationsRead)
	notifications.Put("/:id/read", h.MarkNotificationRead)
	notifications.Delete("/:id", h.DeleteNotification)
}
