package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/justxchange/go-backend/internal/auth"
)

const claimsKey = "session_claims"

// publicPaths are reachable without a bearer token: the signup and login
// flow, plus the websocket handshake which runs its own token check before
// the upgrade.
var publicPaths = map[string]struct{}{
	"/api/signup":          {},
	"/api/verify-otp":      {},
	"/api/save-user":       {},
	"/api/login-user":      {},
	"/api/forgot-password": {},
	"/ws":                  {},
}

// RequireAuth validates the bearer token once per request and stashes the
// claims for handlers. Paths on the public list pass through untouched.
func RequireAuth(tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if _, ok := publicPaths[path]; ok || strings.HasPrefix(path, "/api-docs") {
			return c.Next()
		}

		claims, err := tokens.Validate(bearerToken(c))
		if err != nil {
			return err
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	return strings.TrimPrefix(header, "Bearer ")
}

// sessionClaims returns the claims stashed by RequireAuth.
func sessionClaims(c *fiber.Ctx) (*auth.Claims, error) {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
