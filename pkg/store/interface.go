// Package store defines the persistence interface for the notewell server.
//
// The [Store] interface abstracts data operations so the application can run
// against different backends with one API:
//
//   - [github.com/notewell/notewell/pkg/store/postgres.PostgresStore]: GORM
//     over PostgreSQL with ACID upserts
//   - [github.com/notewell/notewell/pkg/store/surrealdb.SurrealStore]: native
//     SurrealQL over the CBOR WebSocket protocol
//   - [MemStore]: in-memory, used by tests and the -memory server mode
//
// Notes are owned by users and upserted by client-generated ID; the server
// never merges note content, it only applies the newest full record (the
// last-writer-wins decision happens on the client). Memories are owned by
// devices and deduplicated by content fingerprint.
//
// A backend whose schema has not been provisioned yet reports that condition
// through empty results rather than errors, so a fresh deployment works
// before Migrate has run. See IsMissingTable in the backend packages.
package store

import (
	"context"

	"github.com/notewell/notewell/pkg/models"
)

// Store is the persistence interface shared by all backends.
//
// Get methods return nil without error for missing entities. List methods
// return empty slices for no results. All methods accept context.Context and
// respect its cancellation.
type Store interface {
	// UpsertNotes inserts or replaces the given notes within the user's
	// scope and returns how many were written. Each note is replaced
	// wholesale; the caller is responsible for timestamp ordering.
	UpsertNotes(ctx context.Context, userID models.UserID, notes []models.Note) (int, error)

	// ListNotesSince returns the user's notes with UpdatedAt >= since,
	// newest first. since == 0 returns everything.
	ListNotesSince(ctx context.Context, userID models.UserID, since int64) ([]models.Note, error)

	// DeleteNote removes a note by ID. Deleting a missing note is not an
	// error.
	DeleteNote(ctx context.Context, userID models.UserID, id models.NoteID) error

	// UpsertMemories writes memories keyed by their fingerprint-derived IDs
	// and returns how many were new (not replacements).
	UpsertMemories(ctx context.Context, memories []models.Memory) (int, error)

	// ListMemories returns up to limit memories for the device, newest
	// first. limit <= 0 means no limit.
	ListMemories(ctx context.Context, deviceID string, limit int) ([]models.Memory, error)

	// DeleteMemory removes a memory by ID within the device's scope.
	DeleteMemory(ctx context.Context, deviceID string, id models.MemoryID) error

	// CreateUser persists a new user account. Email must be unique.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID, nil if absent.
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)

	// GetUserByEmail retrieves a user by email, nil if absent. Comparison
	// is case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Migrate initializes or updates the backend schema. Idempotent.
	Migrate(ctx context.Context) error

	// Close releases backend connections. Safe to call more than once.
	Close() error
}
