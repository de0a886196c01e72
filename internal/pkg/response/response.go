// Package response writes the JSON envelope every endpoint answers with:
// {status, message, data, metadata} on success and {status, error} on failure.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object. Details carries the error kind.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return write(c, fiber.StatusOK, message, data, metadata)
}

// SuccessCreated sends 201 Created; used for every insert.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return write(c, fiber.StatusCreated, message, data, metadata)
}

// List sends a collection with its length under metadata.count. Keys in
// extra are merged into metadata. A nil slice is sent as [].
func List[T any](c *fiber.Ctx, message string, items []T, extra fiber.Map) error {
	if items == nil {
		items = []T{}
	}
	meta := fiber.Map{"count": len(items)}
	for k, v := range extra {
		meta[k] = v
	}
	return write(c, fiber.StatusOK, message, items, meta)
}

func write(c *fiber.Ctx, status int, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = fiber.Map{}
	}
	return c.Status(status).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = fiber.Map{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}
