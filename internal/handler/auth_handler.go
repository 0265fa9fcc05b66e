package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mixramp/publisher/internal/auth"
)

// AuthHandler backs the gateway's ForwardAuth verify endpoint. Traefik
// calls it for every routed request; the submitter identity is returned
// in X-User-* headers for the gateway to stamp onto the origin request.
type AuthHandler struct {
	verifier  auth.TokenVerifier
	jwtSecret string
}

// NewAuthHandler creates the ForwardAuth handler. Either verification
// path may be absent.
func NewAuthHandler(verifier auth.TokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		verifier:  verifier,
		jwtSecret: jwtSecret,
	}
}

// Verify handles GET /auth/verify. 200 with identity headers on a valid
// token, 401 otherwise.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	tokenString, ok := auth.BearerToken(header)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	if h.verifier != nil {
		claims, err := h.verifier.Validate(tokenString)
		if err == nil {
			c.Set("X-User-Id", claims.UserID)
			c.Set("X-User-Email", claims.Email)
			c.Set("X-User-Name", claims.Name)
			return c.SendStatus(fiber.StatusOK)
		}
		if h.jwtSecret == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
	}

	if h.jwtSecret != "" {
		claims, err := auth.ValidateLegacyToken(tokenString, h.jwtSecret)
		if err == nil {
			c.Set("X-User-Id", claims.UserID)
			c.Set("X-User-Email", claims.Email)
			return c.SendStatus(fiber.StatusOK)
		}
	}

	return c.SendStatus(fiber.StatusUnauthorized)
}
