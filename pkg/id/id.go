package id

import (
	"github.com/google/uuid"
)

func Generate() string {
	return uuid.New().String()
}

// IsValid reports whether s is a well-formed UUID. Lookups with malformed ids
// can short-circuit to not-found without touching the database.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
