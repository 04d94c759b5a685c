package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"eventhub/database"
	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStore struct {
	s *Store
}

func (e *EventStore) Create(ctx context.Context, event *model.Event) error {
	defer e.s.lock(ctx)()
	e.s.events[event.Id] = *event
	return nil
}

func (e *EventStore) Get(ctx context.Context, id primitive.ObjectID) (*model.Event, error) {
	defer e.s.lock(ctx)()
	event, ok := e.s.events[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &event, nil
}

func (e *EventStore) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.Event, error) {
	defer e.s.lock(ctx)()
	out := make(map[primitive.ObjectID]model.Event, len(ids))
	for _, id := range ids {
		if event, ok := e.s.events[id]; ok {
			out[id] = event
		}
	}
	return out, nil
}

func (e *EventStore) List(ctx context.Context, q model.EventQuery) ([]model.Event, int64, error) {
	defer e.s.lock(ctx)()

	search := strings.ToLower(q.Search)
	matched := []model.Event{}
	for _, event := range e.s.events {
		if event.Status != q.Status {
			continue
		}
		if q.Category != "" && event.Category != q.Category {
			continue
		}
		if q.Featured && !event.Featured {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(event.Title), search) &&
			!strings.Contains(strings.ToLower(event.Description), search) &&
			!strings.Contains(strings.ToLower(event.Organizer), search) {
			continue
		}
		matched = append(matched, event)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		c := compareEvents(matched[i], matched[j], q.SortField)
		if c == 0 {
			return matched[i].Id.Hex() < matched[j].Id.Hex()
		}
		if q.SortOrder < 0 {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	start := q.Skip()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func compareEvents(a, b model.Event, field string) int {
	switch field {
	case "date":
		return compareTime(a.Date, b.Date)
	case "price":
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	case "title":
		return strings.Compare(a.Title, b.Title)
	}
	return compareTime(a.CreatedAt, b.CreatedAt)
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (e *EventStore) Update(ctx context.Context, id primitive.ObjectID, patch model.EventPatch) (*model.Event, error) {
	defer e.s.lock(ctx)()

	event, ok := e.s.events[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if patch.TotalTickets != nil && *patch.TotalTickets != event.TotalTickets {
		delta := *patch.TotalTickets - event.TotalTickets
		if event.AvailableTickets+delta < 0 {
			return nil, database.ErrInsufficientTickets
		}
		event.TotalTickets += delta
		event.AvailableTickets += delta
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Category != nil {
		event.Category = *patch.Category
	}
	if patch.Venue != nil {
		event.Venue = *patch.Venue
	}
	if patch.Date != nil {
		event.Date = *patch.Date
	}
	if patch.Time != nil {
		event.Time = *patch.Time
	}
	if patch.Image != nil {
		event.Image = *patch.Image
	}
	if patch.Price != nil {
		event.Price = *patch.Price
	}
	if patch.Organizer != nil {
		event.Organizer = *patch.Organizer
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	if patch.Tags != nil {
		event.Tags = patch.Tags
	}
	if patch.Featured != nil {
		event.Featured = *patch.Featured
	}
	event.UpdatedAt = time.Now().UTC()

	e.s.events[id] = event
	return &event, nil
}

func (e *EventStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer e.s.lock(ctx)()
	if _, ok := e.s.events[id]; !ok {
		return database.ErrNotFound
	}
	delete(e.s.events, id)
	return nil
}

func (e *EventStore) ReserveTickets(ctx context.Context, id primitive.ObjectID, n int) (*model.Event, error) {
	defer e.s.lock(ctx)()

	event, ok := e.s.events[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if event.AvailableTickets < n {
		return nil, database.ErrInsufficientTickets
	}
	event.AvailableTickets -= n
	if event.AvailableTickets == 0 && event.Status == model.EventActive {
		event.Status = model.EventSoldOut
	}
	event.UpdatedAt = time.Now().UTC()

	e.s.events[id] = event
	return &event, nil
}

func (e *EventStore) ReleaseTickets(ctx context.Context, id primitive.ObjectID, n int) (*model.Event, error) {
	defer e.s.lock(ctx)()

	event, ok := e.s.events[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if event.AvailableTickets+n > event.TotalTickets {
		return nil, database.ErrCapacityExceeded
	}
	event.AvailableTickets += n
	if event.AvailableTickets > 0 && event.Status == model.EventSoldOut {
		event.Status = model.EventActive
	}
	event.UpdatedAt = time.Now().UTC()

	e.s.events[id] = event
	return &event, nil
}

func (e *EventStore) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []model.EventStatus) ([]model.Event, error) {
	defer e.s.lock(ctx)()

	wanted := map[model.EventStatus]bool{}
	for _, status := range statuses {
		wanted[status] = true
	}
	out := []model.Event{}
	for _, event := range e.s.events {
		if wanted[event.Status] && !event.Date.Before(from) && event.Date.Before(to) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
