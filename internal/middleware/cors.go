package middleware

import (
	"strings"

	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig holds CORS configuration (suffix + dev password).
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

const corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// CORS allows origins ending with AllowedSuffix, localhost origins, and
// requests carrying the dev-password header. Preflights from an allowed
// origin are answered here with 204.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		// No origin (same-origin, curl, back-office scripts)
		if origin == "" {
			return c.Next()
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		setCORSHeaders(c, origin)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
		return c.Method() == fiber.MethodOptions || cfg.DevPassword == "" || c.Get("dev-password") == cfg.DevPassword
	}
	if cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Methods", corsMethods)
	c.Set("Access-Control-Allow-Headers", "Content-Type, dev-password, "+ActorHeader+", "+traceIDHeader)
	c.Set("Access-Control-Expose-Headers", traceIDHeader)
}
