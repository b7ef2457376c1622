package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "auth.user_id"

// Middleware rejects requests without a valid bearer token and stores the
// user id for handlers
func Middleware(tokens *TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return Unauthenticated()
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			return err
		}

		c.Locals(userIDKey, claims.UserID())
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside the middleware
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
