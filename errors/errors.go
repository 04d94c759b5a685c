package errors

import (
	stderrors "errors"
	"log"

	"eventhub/payment"
	"eventhub/service"

	"github.com/gofiber/fiber/v2"
)

func RaiseError(context *fiber.Ctx, status int, message string) error {
	return context.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message})
}

func RaiseUnauthorizedError(context *fiber.Ctx, message string) error {
	return RaiseError(context, fiber.StatusUnauthorized, message)
}

func RaisePermissionsError(context *fiber.Ctx, message string) error {
	return RaiseError(context, fiber.StatusForbidden, message)
}

func RaiseInternalServerError(context *fiber.Ctx) error {
	return RaiseError(context, fiber.StatusInternalServerError, "Server Error")
}

func RaiseBadRequestError(context *fiber.Ctx, message string) error {
	return RaiseError(context, fiber.StatusBadRequest, message)
}

func RaiseNotFoundError(context *fiber.Ctx, message string) error {
	return RaiseError(context, fiber.StatusNotFound, message)
}

func RaiseValidationError(context *fiber.Ctx, err *service.ValidationError) error {
	return context.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"errors":  err.Fields})
}

// Raise answers with the status matching err's kind. Errors of no known
// kind are handed back for the app's ErrorHandler.
func Raise(context *fiber.Ctx, err error) error {
	var validationErr *service.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		return RaiseValidationError(context, validationErr)
	case stderrors.Is(err, payment.ErrInvalidSignature), stderrors.Is(err, payment.ErrMalformedEvent):
		return RaiseBadRequestError(context, "Webhook Error: "+err.Error())
	case stderrors.Is(err, payment.ErrTimeout):
		return RaiseError(context, fiber.StatusGatewayTimeout, err.Error())
	case stderrors.Is(err, service.ErrExternalService), stderrors.Is(err, payment.ErrProvider):
		return RaiseError(context, fiber.StatusBadGateway, err.Error())
	case stderrors.Is(err, service.ErrNotFound):
		return RaiseNotFoundError(context, err.Error())
	case stderrors.Is(err, service.ErrForbidden):
		return RaisePermissionsError(context, err.Error())
	case stderrors.Is(err, service.ErrInvalidState), stderrors.Is(err, service.ErrValidation):
		return RaiseBadRequestError(context, err.Error())
	}
	return err
}

// Handler is the app-wide fiber ErrorHandler.
func Handler(context *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return RaiseError(context, fiberErr.Code, fiberErr.Message)
	}

	log.Printf("%v %v failed: %v", context.Method(), context.Path(), err)
	return RaiseInternalServerError(context)
}
