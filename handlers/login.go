package handlers

import (
	"errors"
	"log"
	"time"

	"eventhub/database"
	"eventhub/model"
	"eventhub/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func isPasswordHashCorrect(dbHash, pass string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(dbHash), []byte(pass))
	return err == nil
}

func (h *Handler) Login(c *fiber.Ctx) error {
	type Credentials struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	var creds Credentials
	if err := parseBody(c, &creds); err != nil {
		return fail(c, err)
	}

	user, err := h.users.GetByLogin(c.UserContext(), creds.Login)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !isPasswordHashCorrect(user.HashedPassword, creds.Password)) {
		return fail(c, fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials"))
	}
	if err != nil {
		return err
	}

	return h.issueToken(c, fiber.StatusOK, user)
}

func (h *Handler) Register(c *fiber.Ctx) error {
	type Registration struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required,min=6"`
	}
	var input Registration
	if err := parseBody(c, &input); err != nil {
		return fail(c, err)
	}
	if err := service.Validate(input); err != nil {
		return fail(c, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &model.UserData{
		Id:             primitive.NewObjectID(),
		Name:           input.Name,
		Email:          input.Email,
		Login:          input.Login,
		HashedPassword: string(hash),
		Role:           model.RoleUser,
	}
	if err := h.users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fail(c, service.Errorf(service.ErrValidation, "Login %v is already taken", input.Login))
		}
		return err
	}

	return h.issueToken(c, fiber.StatusCreated, user)
}

func (h *Handler) issueToken(c *fiber.Ctx, status int, user *model.UserData) error {
	claims := jwt.MapClaims{
		"sub":      user.Id.Hex(),
		"username": user.Login,
		"role":     user.Role,
		"exp":      time.Now().Add(h.config.TokenTTL).Unix(),
	}

	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.SigningKey))
	if err != nil {
		log.Printf("cannot sign token: %v", err)
		return err
	}

	return c.Status(status).JSON(fiber.Map{"success": true, "message": "Success login", "data": t})
}
