package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventStore struct {
	coll *mongo.Collection
}

func NewEventStore(db *DB) *EventStore {
	return &EventStore{coll: db.Collection(EventsCollection)}
}

func (s *EventStore) Create(ctx context.Context, event *model.Event) error {
	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("cannot insert event: %w", err)
	}
	return nil
}

func (s *EventStore) Get(ctx context.Context, id primitive.ObjectID) (*model.Event, error) {
	var event model.Event
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		return nil, notFoundOr(err)
	}
	return &event, nil
}

func (s *EventStore) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.Event, error) {
	events := make(map[primitive.ObjectID]model.Event, len(ids))
	if len(ids) == 0 {
		return events, nil
	}

	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("cannot read events: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var event model.Event
		if err := cur.Decode(&event); err != nil {
			return nil, fmt.Errorf("cannot decode event: %w", err)
		}
		events[event.Id] = event
	}
	return events, cur.Err()
}

func (s *EventStore) List(ctx context.Context, q model.EventQuery) ([]model.Event, int64, error) {
	filter := bson.M{"status": q.Status}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Featured {
		filter["featured"] = true
	}
	if q.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"description": rx},
			bson.M{"organizer": rx},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: q.SortField, Value: q.SortOrder}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot list events: %w", err)
	}
	events := []model.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("cannot decode events: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot count events: %w", err)
	}
	return events, total, nil
}

// Update applies patch. A TotalTickets change moves AvailableTickets by the
// same delta in one conditional update, so booked seats are never handed out
// twice and the counter cannot go negative.
func (s *EventStore) Update(ctx context.Context, id primitive.ObjectID, patch model.EventPatch) (*model.Event, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Venue != nil {
		set["venue"] = *patch.Venue
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.Time != nil {
		set["time"] = *patch.Time
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Organizer != nil {
		set["organizer"] = *patch.Organizer
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}
	if patch.Featured != nil {
		set["featured"] = *patch.Featured
	}

	filter := bson.M{"_id": id}
	update := bson.M{"$set": set}
	if patch.TotalTickets != nil && *patch.TotalTickets != current.TotalTickets {
		delta := *patch.TotalTickets - current.TotalTickets
		filter["totalTickets"] = current.TotalTickets
		filter["availableTickets"] = bson.M{"$gte": -delta}
		update["$inc"] = bson.M{"totalTickets": delta, "availableTickets": delta}
	}

	var updated model.Event
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("cannot update event: %w", err)
	}

	latest, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if latest.TotalTickets != current.TotalTickets {
		return nil, ErrStaleState
	}
	return nil, ErrInsufficientTickets
}

func (s *EventStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveTickets takes n tickets only if that leaves the counter at zero or
// above. An active event that reaches zero becomes sold-out.
func (s *EventStore) ReserveTickets(ctx context.Context, id primitive.ObjectID, n int) (*model.Event, error) {
	filter := bson.M{"_id": id, "availableTickets": bson.M{"$gte": n}}
	update := bson.M{
		"$inc": bson.M{"availableTickets": -n},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	event, err := s.adjustTickets(ctx, id, filter, update, ErrInsufficientTickets)
	if err != nil {
		return nil, err
	}

	if event.AvailableTickets == 0 && event.Status == model.EventActive {
		_, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": id, "availableTickets": 0, "status": model.EventActive},
			bson.M{"$set": bson.M{"status": model.EventSoldOut}})
		if err != nil {
			return nil, fmt.Errorf("cannot mark event sold out: %w", err)
		}
		event.Status = model.EventSoldOut
	}
	return event, nil
}

// ReleaseTickets gives n tickets back without letting the counter pass
// totalTickets. A sold-out event that regains tickets becomes active again.
func (s *EventStore) ReleaseTickets(ctx context.Context, id primitive.ObjectID, n int) (*model.Event, error) {
	filter := bson.M{
		"_id": id,
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{"$availableTickets", n}},
			"$totalTickets",
		}},
	}
	update := bson.M{
		"$inc": bson.M{"availableTickets": n},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	event, err := s.adjustTickets(ctx, id, filter, update, ErrCapacityExceeded)
	if err != nil {
		return nil, err
	}

	if event.AvailableTickets > 0 && event.Status == model.EventSoldOut {
		_, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": id, "availableTickets": bson.M{"$gt": 0}, "status": model.EventSoldOut},
			bson.M{"$set": bson.M{"status": model.EventActive}})
		if err != nil {
			return nil, fmt.Errorf("cannot reopen event: %w", err)
		}
		event.Status = model.EventActive
	}
	return event, nil
}

func (s *EventStore) adjustTickets(ctx context.Context, id primitive.ObjectID, filter, update bson.M, unmatched error) (*model.Event, error) {
	var event model.Event
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&event)
	if err == nil {
		return &event, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("cannot update tickets: %w", err)
	}

	found, err := exists(ctx, s.coll, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("cannot read event: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return nil, unmatched
}

// ListStartingBetween returns events in the given statuses whose date lies in [from, to).
func (s *EventStore) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []model.EventStatus) ([]model.Event, error) {
	filter := bson.M{
		"date":   bson.M{"$gte": from, "$lt": to},
		"status": bson.M{"$in": statuses},
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("cannot list upcoming events: %w", err)
	}
	events := []model.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("cannot decode events: %w", err)
	}
	return events, nil
}
