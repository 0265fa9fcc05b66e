package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mixramp/publisher/pkg/response"
)

// GatewayAuthMiddleware trusts the X-User-* identity headers stamped by
// Traefik ForwardAuth in front of the service. A request without a user
// ID never passed the gateway's verify endpoint and is rejected.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		c.Locals("userId", userID)
		c.Locals("email", c.Get("X-User-Email"))
		c.Locals("name", c.Get("X-User-Name"))

		return c.Next()
	}
}
