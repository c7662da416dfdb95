package handlers

import (
	"strings"

	"pinboard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthMiddleware
const (
	localUserID   = "user_id"
	localUsername = "username"
)

// TokenCookie is the name of the session cookie
const TokenCookie = "token"

// AuthMiddleware verifies the JWT from the session cookie, the Authorization
// header, or the access_token query parameter (websocket clients).
func AuthMiddleware(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(TokenCookie)
		if token == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if token == "" {
			token = c.Query("access_token")
		}

		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Please Login")
		}

		claims, err := users.ValidateToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		uid, ok := claims["user_id"].(string)
		if !ok || uid == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}
		c.Locals(localUserID, uid)

		if name, ok := claims["name"].(string); ok {
			c.Locals(localUsername, name)
		}

		return c.Next()
	}
}

// currentUser returns the authenticated user's id and name
func currentUser(c *fiber.Ctx) (id, name string) {
	id, _ = c.Locals(localUserID).(string)
	name, _ = c.Locals(localUsername).(string)
	return id, name
}
