// Package blob holds the document store the claims core writes to.
// The core only needs to put bytes under a name and delete by reference.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Delete when the reference does not resolve.
var ErrNotFound = errors.New("blob not found")

// Store persists opaque documents (claim evidence, signed settlements).
type Store interface {
	// Store writes data and returns the reference to keep on the owning row.
	Store(ctx context.Context, data []byte, name string) (string, error)
	// Delete removes the object behind ref.
	Delete(ctx context.Context, ref string) error
}

// Key builds an object key like "claims/ID_<owner>/<uuid>-<file>".
// The random segment keeps two uploads with the same filename apart.
func Key(prefix string, ownerID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/ID_%s/%s-%s", prefix, ownerID, uuid.NewString()[:8], sanitize(filename))
}

func sanitize(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
