package service

import (
	"context"
	"errors"
	"time"

	"eventhub/clock"
	"eventhub/database"
	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateEventInput struct {
	Title            string            `json:"title" validate:"required"`
	Description      string            `json:"description" validate:"required"`
	Category         string            `json:"category" validate:"required,oneof=concert conference sports theater festival workshop other"`
	Venue            model.Venue       `json:"venue"`
	Date             time.Time         `json:"date" validate:"required"`
	Time             string            `json:"time" validate:"required"`
	Image            string            `json:"image"`
	TotalTickets     int               `json:"totalTickets" validate:"required,min=1"`
	AvailableTickets *int              `json:"availableTickets" validate:"omitempty,min=0"`
	Price            float64           `json:"price" validate:"min=0"`
	Organizer        string            `json:"organizer" validate:"required"`
	Status           model.EventStatus `json:"status" validate:"omitempty,oneof=active cancelled sold-out completed"`
	Tags             []string          `json:"tags"`
	Featured         bool              `json:"featured"`
}

type EventPage struct {
	Events []model.Event
	Total  int64
	Page   int
	Pages  int64
}

type Availability struct {
	Available        bool               `json:"available"`
	AvailableTickets int                `json:"availableTickets"`
	RequestedTickets int                `json:"requestedTickets"`
	EventId          primitive.ObjectID `json:"eventId"`
}

type Events struct {
	store EventStore
	clock clock.Clock
}

func NewEvents(store EventStore, clk clock.Clock) *Events {
	return &Events{store: store, clock: clk}
}

func (s *Events) List(ctx context.Context, q model.EventQuery) (*EventPage, error) {
	q.Normalize()
	events, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &EventPage{Events: events, Total: total, Page: q.Page, Pages: q.Pages(total)}, nil
}

func (s *Events) Get(ctx context.Context, id primitive.ObjectID) (*model.Event, error) {
	event, err := s.store.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (s *Events) Create(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	available := in.TotalTickets
	if in.AvailableTickets != nil {
		if *in.AvailableTickets > in.TotalTickets {
			return nil, invalidField("availableTickets", "ltefield=totalTickets")
		}
		available = *in.AvailableTickets
	}
	status := in.Status
	if status == "" {
		status = model.EventActive
	}
	if status == model.EventActive && available == 0 {
		status = model.EventSoldOut
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	now := s.clock.Now()
	event := &model.Event{
		Id:               primitive.NewObjectID(),
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		Venue:            in.Venue,
		Date:             in.Date,
		Time:             in.Time,
		Image:            in.Image,
		TotalTickets:     in.TotalTickets,
		AvailableTickets: available,
		Price:            in.Price,
		Organizer:        in.Organizer,
		Status:           status,
		Tags:             tags,
		Featured:         in.Featured,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Events) Update(ctx context.Context, id primitive.ObjectID, patch model.EventPatch) (*model.Event, error) {
	if err := Validate(patch); err != nil {
		return nil, err
	}

	event, err := s.store.Update(ctx, id, patch)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrEventNotFound
	case errors.Is(err, database.ErrInsufficientTickets):
		return nil, ErrTicketsBooked
	case errors.Is(err, database.ErrStaleState):
		return nil, Errorf(ErrInvalidState, "Event tickets changed concurrently, please retry")
	}
	return event, err
}

func (s *Events) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

func (s *Events) Availability(ctx context.Context, id primitive.ObjectID, tickets int) (*Availability, error) {
	if tickets < 1 {
		return nil, invalidField("tickets", "min")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Available:        event.AvailableTickets >= tickets,
		AvailableTickets: event.AvailableTickets,
		RequestedTickets: tickets,
		EventId:          event.Id,
	}, nil
}
