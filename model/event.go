package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCancelled EventStatus = "cancelled"
	EventSoldOut   EventStatus = "sold-out"
	EventCompleted EventStatus = "completed"
)

var EventCategories = []string{"concert", "conference", "sports", "theater", "festival", "workshop", "other"}

type Venue struct {
	Name    string `json:"name" bson:"name" validate:"required"`
	Address string `json:"address" bson:"address" validate:"required"`
	City    string `json:"city" bson:"city" validate:"required"`
	State   string `json:"state" bson:"state" validate:"required"`
	ZipCode string `json:"zipCode" bson:"zipCode" validate:"required"`
}

type Event struct {
	Id               primitive.ObjectID `json:"_id" bson:"_id"`
	Title            string             `json:"title" bson:"title"`
	Description      string             `json:"description" bson:"description"`
	Category         string             `json:"category" bson:"category"`
	Venue            Venue              `json:"venue" bson:"venue"`
	Date             time.Time          `json:"date" bson:"date"`
	Time             string             `json:"time" bson:"time"`
	Image            string             `json:"image" bson:"image"`
	TotalTickets     int                `json:"totalTickets" bson:"totalTickets"`
	AvailableTickets int                `json:"availableTickets" bson:"availableTickets"`
	Price            float64            `json:"price" bson:"price"`
	Organizer        string             `json:"organizer" bson:"organizer"`
	Status           EventStatus        `json:"status" bson:"status"`
	Tags             []string           `json:"tags" bson:"tags"`
	Featured         bool               `json:"featured" bson:"featured"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// EventPatch carries the admin-editable fields of an event. Nil fields are
// left untouched. AvailableTickets is not editable directly: it follows
// TotalTickets by the same delta.
type EventPatch struct {
	Title        *string      `json:"title" validate:"omitempty,min=1"`
	Description  *string      `json:"description" validate:"omitempty,min=1"`
	Category     *string      `json:"category" validate:"omitempty,oneof=concert conference sports theater festival workshop other"`
	Venue        *Venue       `json:"venue"`
	Date         *time.Time   `json:"date"`
	Time         *string      `json:"time" validate:"omitempty,min=1"`
	Image        *string      `json:"image"`
	TotalTickets *int         `json:"totalTickets" validate:"omitempty,min=1"`
	Price        *float64     `json:"price" validate:"omitempty,min=0"`
	Organizer    *string      `json:"organizer" validate:"omitempty,min=1"`
	Status       *EventStatus `json:"status" validate:"omitempty,oneof=active cancelled sold-out completed"`
	Tags         []string     `json:"tags"`
	Featured     *bool        `json:"featured"`
}
