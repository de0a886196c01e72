package middleware

import (
	"strings"

	"insurledger-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
)

// ActorHeader carries the identity of the caller. Authentication happens in
// front of this service; whatever it puts here is recorded in audit columns.
const ActorHeader = "X-Actor-Id"

const actorLocal = "actor"

// Actor copies the X-Actor-Id header into the request locals.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(actorLocal, domain.Actor(strings.TrimSpace(c.Get(ActorHeader))))
		return c.Next()
	}
}

// GetActor returns the caller identity, falling back to the header when the
// Actor middleware is not mounted (handler tests).
func GetActor(c *fiber.Ctx) domain.Actor {
	if a, ok := c.Locals(actorLocal).(domain.Actor); ok {
		return a
	}
	return domain.Actor(strings.TrimSpace(c.Get(ActorHeader)))
}
