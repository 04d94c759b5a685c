package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"eventhub/clock"
	"eventhub/model"
)

type SweepResult struct {
	Events int
	Sent   int
	Failed int
}

type Reminders struct {
	events        EventStore
	bookings      BookingStore
	notifications *Notifications
	clock         clock.Clock
}

func NewReminders(events EventStore, bookings BookingStore, notifications *Notifications, clk clock.Clock) *Reminders {
	return &Reminders{
		events:        events,
		bookings:      bookings,
		notifications: notifications,
		clock:         clk,
	}
}

// Sweep reminds the holders of paid bookings for events taking place on the
// next calendar day. A booking is claimed before its notification is
// written, so concurrent or repeated sweeps remind each booking once.
func (s *Reminders) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.clock.Now()
	year, month, day := now.Date()
	from := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	events, err := s.events.ListStartingBetween(ctx, from, to, []model.EventStatus{model.EventActive, model.EventSoldOut})
	if err != nil {
		return result, err
	}
	result.Events = len(events)

	for _, event := range events {
		bookings, err := s.bookings.ListReminderCandidates(ctx, event.Id)
		if err != nil {
			log.Printf("cannot list bookings of event %v: %v", event.Id.Hex(), err)
			result.Failed++
			continue
		}

		for _, booking := range bookings {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.remind(ctx, event, booking, &result)
		}
	}

	log.Printf("reminder sweep for %v: %d events, %d sent, %d failed", from.Format("2006-01-02"), result.Events, result.Sent, result.Failed)
	return result, nil
}

func (s *Reminders) remind(ctx context.Context, event model.Event, booking model.Booking, result *SweepResult) {
	claimed, err := s.bookings.MarkReminderSent(ctx, booking.Id)
	if err != nil {
		log.Printf("cannot claim reminder of booking %v: %v", booking.Id.Hex(), err)
		result.Failed++
		return
	}
	if !claimed {
		return
	}

	err = s.notifications.Notify(ctx, model.Notification{
		UserId:    booking.User,
		Type:      model.NotificationReminder,
		Message:   fmt.Sprintf("Reminder: %s is happening tomorrow at %s", event.Title, event.Time),
		EventId:   event.Id,
		BookingId: booking.Id,
	})
	if err != nil {
		log.Printf("cannot store reminder of booking %v: %v", booking.Id.Hex(), err)
		if err := s.bookings.ClearReminderSent(ctx, booking.Id); err != nil {
			log.Printf("cannot release reminder of booking %v: %v", booking.Id.Hex(), err)
		}
		result.Failed++
		return
	}
	result.Sent++
}

// Schedule runs Sweep every interval until ctx is done or the returned
// channel is closed.
func (s *Reminders) Schedule(ctx context.Context, interval time.Duration) chan struct{} {
	if interval <= 0 {
		log.Println("Scheduled reminders are disabled")
		return nil
	}

	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					log.Printf("Scheduled reminder sweep error: %v", err)
				}
			case <-stopCh:
				log.Println("Scheduled reminders stopped")
				return
			case <-ctx.Done():
				log.Println("Scheduled reminders stopped (context Done)")
				return
			}
		}
	}()

	log.Printf("Scheduled reminders started with interval %v", interval)
	return stopCh
}
