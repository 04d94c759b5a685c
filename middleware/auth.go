package middleware

import (
	"eventhub/errors"
	"eventhub/model"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	IdentityKey = "identity"
	callerKey   = "caller"
)

// Authorize validates the bearer token and makes the caller available
// through Caller.
func Authorize(signingKey string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(signingKey),
		ErrorHandler:   jwtError,
		SuccessHandler: resolveCaller,
		ContextKey:     IdentityKey,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return errors.RaiseBadRequestError(c, "Missing or malformed JWT")
	}
	return errors.RaiseUnauthorizedError(c, "Invalid or expired JWT")
}

func resolveCaller(c *fiber.Ctx) error {
	token, ok := c.Locals(IdentityKey).(*jwt.Token)
	if !ok {
		return errors.RaiseUnauthorizedError(c, "Not authorized to access this route")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.RaiseUnauthorizedError(c, "Not authorized to access this route")
	}

	sub, _ := claims["sub"].(string)
	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return errors.RaiseUnauthorizedError(c, "Not authorized to access this route")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = model.RoleUser
	}

	c.Locals(callerKey, model.Identity{UserId: userID, Role: role})
	return c.Next()
}

// Caller returns the identity resolved by Authorize.
func Caller(c *fiber.Ctx) model.Identity {
	identity, _ := c.Locals(callerKey).(model.Identity)
	return identity
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := Caller(c)
		if !caller.IsAdmin() {
			return errors.RaisePermissionsError(c, "User role "+caller.Role+" is not authorized to access this route")
		}
		return c.Next()
	}
}
