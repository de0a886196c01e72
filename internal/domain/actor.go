package domain

import "strings"

// Actor is the opaque identity of whoever performs a mutating operation.
// It is recorded in audit columns; authentication happens outside the core.
type Actor string

func (a Actor) String() string {
	return string(a)
}

// Require rejects the empty actor; every mutating call must say who performed it.
func (a Actor) Require() error {
	if strings.TrimSpace(string(a)) == "" {
		return Validation("actor is required")
	}
	return nil
}
