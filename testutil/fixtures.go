package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"eventhub/model"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewEvent returns an active event with the given ticket count, dated
// at the given instant.
func NewEvent(tickets int, price float64, date time.Time) model.Event {
	return model.Event{
		Id:          primitive.NewObjectID(),
		Title:       "Go Conference",
		Description: "Talks about Go",
		Category:    "conference",
		Venue: model.Venue{
			Name:    "Hall A",
			Address: "1 Main St",
			City:    "Springfield",
			State:   "IL",
			ZipCode: "62701",
		},
		Date:             date,
		Time:             "18:00",
		TotalTickets:     tickets,
		AvailableTickets: tickets,
		Price:            price,
		Organizer:        "Gophers",
		Status:           model.EventActive,
		Tags:             []string{},
		CreatedAt:        date.Add(-30 * 24 * time.Hour),
		UpdatedAt:        date.Add(-30 * 24 * time.Hour),
	}
}

func NewUser(role string) model.UserData {
	id := primitive.NewObjectID()
	return model.UserData{
		Id:    id,
		Name:  "User " + id.Hex()[18:],
		Email: id.Hex() + "@example.com",
		Login: "user" + id.Hex(),
		Role:  role,
	}
}

// SignWebhook builds a Stripe-Signature header for payload.
func SignWebhook(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// Token signs a bearer token for user the way the login handler does.
func Token(secret string, user model.UserData) string {
	claims := jwt.MapClaims{
		"sub":      user.Id.Hex(),
		"username": user.Login,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}
