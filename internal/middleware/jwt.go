package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/digital-seal/digital_seal/internal/token"
)

// Locals keys set by JWTAuth.
const (
	LocalsAccountID = "account_id"
	LocalsRole      = "role"
)

// JWTAuth returns a middleware that validates bearer access tokens and stores
// the subject and role on the request context.
func JWTAuth(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := tokens.ParseAccessToken(raw)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalsAccountID, claims.Subject)
		c.Locals(LocalsRole, claims.Role)
		return c.Next()
	}
}
