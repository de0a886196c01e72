package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 100

// StatusFor maps an error kind onto the HTTP status it is reported with.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindIntegrityViolation, domain.KindStateViolation, domain.KindCapacityExceeded,
		domain.KindAlreadySettled, domain.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the global error handler. Returns the standard error format
// with the error kind in details. 5xx responses are pushed onto the Redis
// error log read by /health/errors when rdb is set.
func ErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"
		details := map[string]interface{}{}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			kind := domain.KindOf(err)
			code = StatusFor(kind)
			details["kind"] = string(kind)
			if code < fiber.StatusInternalServerError {
				message = err.Error()
			}
		}

		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
			recordError(rdb, c, err)
		}
		return response.Error(c, message, code, details)
	}
}

func recordError(rdb *redis.Client, c *fiber.Ctx, err error) {
	if rdb == nil {
		return
	}
	entry, _ := json.Marshal(map[string]interface{}{
		"time":     time.Now().UTC(),
		"method":   c.Method(),
		"path":     c.OriginalURL(),
		"message":  err.Error(),
		"trace_id": GetTraceID(c),
	})
	ctx := context.Background()
	_ = rdb.LPush(ctx, KeyErrorLog, entry).Err()
	_ = rdb.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1).Err()
}
