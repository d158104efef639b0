package api

import (
	"context"
	"strings"

	taskdomain "github.com/example/todo-tracker/domain/task"
	userdomain "github.com/example/todo-tracker/domain/user"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
)

// TokenValidator resolves an access token to claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*userdomain.Claims, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}

// authenticate validates the Authorization header if present. It returns
// false after writing a 401 response.
func authenticate(c *fiber.Ctx, users TokenValidator, required bool) (bool, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if required {
			return false, unauthorized(c, "Authorization header is required")
		}
		return true, nil
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false, unauthorized(c, "Invalid authorization header format. Use: Bearer <token>")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return false, unauthorized(c, "Token is required")
	}

	claims, err := users.ValidateToken(c.UserContext(), token)
	if err != nil {
		return false, unauthorized(c, "Invalid or expired token")
	}

	c.Locals(UserContextKey, claims)
	return true, nil
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(users TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := authenticate(c, users, true)
		if !ok {
			return err
		}
		return c.Next()
	}
}

// OptionalAuthMiddleware resolves a bearer token when one is sent and lets
// anonymous requests through. A token that is sent but invalid is rejected.
func OptionalAuthMiddleware(users TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := authenticate(c, users, false)
		if !ok {
			return err
		}
		return c.Next()
	}
}

// claimsFrom returns the claims stored by the auth middleware, or nil.
func claimsFrom(c *fiber.Ctx) *userdomain.Claims {
	claims, _ := c.Locals(UserContextKey).(*userdomain.Claims)
	return claims
}

// identityFrom converts the request's claims to the engine's identity. It
// returns nil for anonymous requests.
func identityFrom(c *fiber.Ctx) *taskdomain.Identity {
	claims := claimsFrom(c)
	if claims == nil {
		return nil
	}
	return &taskdomain.Identity{
		ID:      claims.UserID,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}
}
