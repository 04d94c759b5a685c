package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventhub/clock"
	"eventhub/config"
	"eventhub/database"
	"eventhub/mailer"
	"eventhub/messaging"
	"eventhub/service"
)

// send-reminders runs a single reminder sweep, meant for cron.
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

	announcers := []service.Announcer{}
	if cfg.RabbitMQURL != "" {
		broker, err := messaging.NewBroker(cfg.RabbitMQURL, messaging.NotificationsExchange, "topic")
		if err != nil {
			log.Printf("Reminders will not be published: %v", err)
		} else {
			defer broker.Close()
			announcers = append(announcers, messaging.NewAnnouncer(broker))
		}
	}
	if cfg.MailerSendAPIKey != "" {
		announcers = append(announcers, mailer.NewMailer(cfg.MailerSendAPIKey, cfg.MailerFromName, cfg.MailerFromEmail))
	}

	clk := clock.NewSystem(time.Local)
	events := database.NewEventStore(db)
	bookings := database.NewBookingStore(db)
	notifications := service.NewNotifications(database.NewNotificationStore(db), database.NewUserStore(db), clk, announcers...)

	result, err := service.NewReminders(events, bookings, notifications, clk).Sweep(ctx)
	if err != nil {
		log.Fatalf("Reminder sweep failed: %v", err)
	}
	log.Printf("Reminder sweep done: %d events, %d sent, %d failed", result.Events, result.Sent, result.Failed)
}
