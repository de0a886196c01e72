// Package request holds the body and path parsing shared by the HTTP handlers.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Date accepts "2006-01-02" or RFC 3339 in JSON bodies.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns nil for a missing date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// ParseDate parses a calendar date or an RFC 3339 timestamp. Empty is the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Body decodes the JSON body into dst.
func Body(c *fiber.Ctx, dst interface{}) error {
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return de
		}
		return domain.Validation("Invalid request body")
	}
	return nil
}

// ID parses a uuid path parameter.
func ID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	raw := c.Params(param)
	if raw == "" {
		return uuid.Nil, domain.Validation("%s is required", param)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Validation("Invalid %s format", param)
	}
	return id, nil
}

// Upload reads a multipart file field. Reading stops one byte past the
// document limit so oversized uploads are rejected without buffering them.
func Upload(c *fiber.Ctx, field string) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, domain.Validation("file field %q is required", field)
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, validation.MaxDocumentSize+1))
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}
