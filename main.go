package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"eventhub/clock"
	"eventhub/config"
	"eventhub/database"
	"eventhub/errors"
	"eventhub/handlers"
	"eventhub/mailer"
	"eventhub/messaging"
	"eventhub/payment"
	"eventhub/router"
	"eventhub/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(context.Background())

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	events := database.NewEventStore(db)
	bookings := database.NewBookingStore(db)
	users := database.NewUserStore(db)
	clk := clock.NewSystem(time.Local)

	gateway := payment.NewGateway(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.Currency,
		Timeout:       cfg.PaymentTimeout,
		MaxRetries:    cfg.PaymentMaxRetries,
	})

	announcers := []service.Announcer{}
	if cfg.RabbitMQURL != "" {
		broker, err := messaging.NewBroker(cfg.RabbitMQURL, messaging.NotificationsExchange, "topic")
		if err != nil {
			log.Printf("Notifications will not be published: %v", err)
		} else {
			defer broker.Close()
			announcers = append(announcers, messaging.NewAnnouncer(broker))
		}
	}
	if cfg.MailerSendAPIKey != "" {
		announcers = append(announcers, mailer.NewMailer(cfg.MailerSendAPIKey, cfg.MailerFromName, cfg.MailerFromEmail))
	}

	notificationService := service.NewNotifications(database.NewNotificationStore(db), users, clk, announcers...)
	eventService := service.NewEvents(events, clk)
	bookingService := service.NewBookings(db, events, bookings, gateway, notificationService, clk)
	reminders := service.NewReminders(events, bookings, notificationService, clk)

	if stopCh := reminders.Schedule(ctx, cfg.ReminderInterval); stopCh != nil {
		defer close(stopCh)
	}

	app := fiber.New(fiber.Config{ErrorHandler: errors.Handler})

	h := handlers.New(eventService, bookingService, notificationService, users, handlers.Config{
		SigningKey: cfg.SigningKey,
		TokenTTL:   cfg.TokenTTL,
	})
	router.SetupRoutes(app, h, router.Config{
		SigningKey:  cfg.SigningKey,
		CORSOrigins: cfg.CORSOrigins,
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
