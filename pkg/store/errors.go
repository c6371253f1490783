package store

import (
	"errors"
	"strings"
)

// ErrEmailTaken is returned by CreateUser when the email is already
// registered.
var ErrEmailTaken = errors.New("email already registered")

// missingTableMarkers are the substrings each backend emits when a table or
// schema has not been provisioned yet. PostgreSQL reports SQLSTATE 42P01,
// SurrealDB reports the table as not found, and GORM wraps both.
var missingTableMarkers = []string{
	"42p01",
	"does not exist",
	"not found",
	"could not find the table",
	"schema cache",
}

// IsMissingTable reports whether err indicates the backend schema has not
// been created yet. Handlers soft-fail these: reads return empty results and
// writes report zero rows, so clients keep working against a fresh
// deployment until Migrate runs.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range missingTableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
