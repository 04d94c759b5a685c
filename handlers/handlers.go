package handlers

import (
	"context"
	"strconv"
	"time"

	"eventhub/errors"
	"eventhub/model"
	"eventhub/service"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	GetByLogin(ctx context.Context, login string) (*model.UserData, error)
	Create(ctx context.Context, user *model.UserData) error
}

type Config struct {
	SigningKey string
	TokenTTL   time.Duration
}

type Handler struct {
	events        *service.Events
	bookings      *service.Bookings
	notifications *service.Notifications
	users         UserStore
	config        Config
}

func New(events *service.Events, bookings *service.Bookings, notifications *service.Notifications, users UserStore, config Config) *Handler {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 8 * time.Hour
	}
	return &Handler{
		events:        events,
		bookings:      bookings,
		notifications: notifications,
		users:         users,
		config:        config,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": "Server is running"})
}

func parseID(c *fiber.Ctx, param string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(param))
	if err != nil {
		return primitive.NilObjectID, service.Errorf(service.ErrValidation, "Invalid id %v", c.Params(param))
	}
	return id, nil
}

// queryInt reads an integer query parameter, falling back when it is absent
// or not a number.
func queryInt(c *fiber.Ctx, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return service.Errorf(service.ErrValidation, "Invalid request body")
	}
	return nil
}

// fail turns a service error into a response.
func fail(c *fiber.Ctx, err error) error {
	return errors.Raise(c, err)
}

func success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}
