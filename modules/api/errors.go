package api

import (
	"errors"
	"log"
	"maps"
	"slices"

	taskdomain "github.com/example/todo-tracker/domain/task"
	"github.com/example/todo-tracker/modules/user"
	"github.com/gofiber/fiber/v2"
)

// writeError maps err onto the HTTP error model.
func writeError(c *fiber.Ctx, err error) error {
	var ve *taskdomain.ValidationError
	var fe *user.FormError

	switch {
	case errors.As(err, &ve):
		return writeFormErrors(c, ve.Fields)
	case errors.As(err, &fe):
		return writeFormErrors(c, fe.Fields)
	case errors.Is(err, taskdomain.ErrNotFound), errors.Is(err, user.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource does not exist",
		})
	case errors.Is(err, taskdomain.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "You are not allowed to access this task",
		})
	case errors.Is(err, user.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email already exists",
		})
	case errors.Is(err, user.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case errors.Is(err, user.ErrInvalidToken), errors.Is(err, user.ErrExpiredToken):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	case errors.Is(err, taskdomain.ErrPersistence):
		log.Printf("[api] Persistence failure: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "persistence_failure",
			Message: "The change could not be saved",
		})
	}

	log.Printf("[api] Unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// writeFormErrors renders field messages as a 422 in key order.
func writeFormErrors(c *fiber.Ctx, fields map[string][]string) error {
	entries := make([]FormErrorEntry, 0, len(fields))
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		entries = append(entries, FormErrorEntry{Key: key, Errors: fields[key]})
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(FormErrorsResponse{
		Status:     "error",
		FormErrors: entries,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   errorLabel(code),
		Message: message,
	})
}

func errorLabel(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusUpgradeRequired:
		return "upgrade_required"
	}
	return "server_error"
}
