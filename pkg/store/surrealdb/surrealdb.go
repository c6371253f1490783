// Package surrealdb implements [github.com/notewell/notewell/pkg/store.Store]
// against SurrealDB using native SurrealQL over the CBOR WebSocket protocol.
//
// The connection is configured with the surrealcbor codec rather than default
// Go marshaling: SurrealDB stores CBOR internally, and the custom codec is
// what makes typed IDs land as RecordIDs instead of plain strings. All
// queries are parameterized with $param syntax; user-provided values are
// never interpolated into query text.
//
// SurrealDB is schemaless, so Migrate only declares the indexes the sync and
// memory queries depend on. Tables themselves appear on first insert.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/store"
)

// SurrealStore implements the Store interface over a SurrealDB connection.
type SurrealStore struct {
	db       *surrealdb.DB
	ns       string
	database string
}

var _ store.Store = (*SurrealStore)(nil)

// NewSurrealStore connects to SurrealDB at wsURL and selects the given
// namespace and database. Credentials are optional for unauthenticated dev
// instances.
func NewSurrealStore(wsURL, namespace, database, username, password string) (store.Store, error) {
	ctx := context.Background()

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)

	// The surrealcbor codec handles typed IDs and datetimes in the format
	// SurrealDB expects; the default marshaler does not.
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &SurrealStore{db: db, ns: namespace, database: database}, nil
}

// Migrate declares the indexes behind the since-cursor and per-device
// queries. Idempotent: IF NOT EXISTS makes re-runs no-ops.
func (s *SurrealStore) Migrate(ctx context.Context) error {
	stmts := []string{
		"DEFINE INDEX IF NOT EXISTS notes_user_updated ON TABLE notes FIELDS user_id, updated_at",
		"DEFINE INDEX IF NOT EXISTS memories_device ON TABLE memories FIELDS device_id",
		"DEFINE INDEX IF NOT EXISTS users_email ON TABLE users FIELDS email UNIQUE",
	}
	for _, stmt := range stmts {
		if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
			return fmt.Errorf("failed to define index: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound maps SurrealDB's empty-result errors to nil so callers can
// treat a missing record as absence rather than failure.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// surrealNote mirrors models.Note with snake_case storage field names and a
// RecordID-typed primary key.
type surrealNote struct {
	ID          models.NoteID `json:"id"`
	UserID      models.UserID `json:"user_id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Tags        models.Tags   `json:"tags"`
	Category    string        `json:"category,omitempty"`
	AIGenerated bool          `json:"ai_generated"`
	Pinned      bool          `json:"pinned"`
	Archived    bool          `json:"archived"`
	Trashed     bool          `json:"trashed"`
	CreatedAt   int64         `json:"created_at"`
	UpdatedAt   int64         `json:"updated_at"`
}

func toSurrealNote(userID models.UserID, n models.Note) surrealNote {
	return surrealNote{
		ID:          n.ID,
		UserID:      userID,
		Title:       n.Title,
		Content:     n.Content,
		Tags:        n.Tags,
		Category:    n.Category,
		AIGenerated: n.AIGenerated,
		Pinned:      n.Pinned,
		Archived:    n.Archived,
		Trashed:     n.Trashed,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (sn surrealNote) toModel() models.Note {
	return models.Note{
		ID:          sn.ID,
		UserID:      sn.UserID,
		Title:       sn.Title,
		Content:     sn.Content,
		Tags:        sn.Tags,
		Category:    sn.Category,
		AIGenerated: sn.AIGenerated,
		Pinned:      sn.Pinned,
		Archived:    sn.Archived,
		Trashed:     sn.Trashed,
		CreatedAt:   sn.CreatedAt,
		UpdatedAt:   sn.UpdatedAt,
	}
}

func (s *SurrealStore) UpsertNotes(ctx context.Context, userID models.UserID, notes []models.Note) (int, error) {
	count := 0
	for _, n := range notes {
		if n.ID.IsZero() {
			continue
		}
		record := toSurrealNote(userID, n)
		// UPSERT replaces the full record; the client already decided
		// which version wins.
		query := "UPSERT $id CONTENT $note"
		params := map[string]any{
			"id":   n.ID.RecordID(),
			"note": record,
		}
		if _, err := surrealdb.Query[any](ctx, s.db, query, params); err != nil {
			return count, fmt.Errorf("failed to upsert note: %w", err)
		}
		count++
	}
	return count, nil
}

func (s *SurrealStore) ListNotesSince(ctx context.Context, userID models.UserID, since int64) ([]models.Note, error) {
	query := "SELECT * FROM notes WHERE user_id = $user AND updated_at >= $since ORDER BY updated_at DESC"
	params := map[string]any{
		"user":  userID.RecordID(),
		"since": since,
	}
	result, err := surrealdb.Query[[]surrealNote](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := []models.Note{}
	if result != nil && len(*result) > 0 {
		for _, sn := range (*result)[0].Result {
			notes = append(notes, sn.toModel())
		}
	}
	return notes, nil
}

func (s *SurrealStore) DeleteNote(ctx context.Context, userID models.UserID, id models.NoteID) error {
	query := "DELETE $id WHERE user_id = $user"
	params := map[string]any{
		"id":   id.RecordID(),
		"user": userID.RecordID(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, query, params); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// surrealMemory mirrors models.Memory with snake_case storage field names.
type surrealMemory struct {
	ID           models.MemoryID `json:"id"`
	DeviceID     string          `json:"device_id"`
	Content      string          `json:"content"`
	Topic        string          `json:"topic,omitempty"`
	Importance   int             `json:"importance"`
	SourceNoteID string          `json:"source_note_id,omitempty"`
	Fingerprint  string          `json:"fingerprint"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
}

func (sm surrealMemory) toModel() models.Memory {
	return models.Memory{
		ID:           sm.ID,
		DeviceID:     sm.DeviceID,
		Content:      sm.Content,
		Topic:        sm.Topic,
		Importance:   sm.Importance,
		SourceNoteID: sm.SourceNoteID,
		Fingerprint:  sm.Fingerprint,
		CreatedAt:    sm.CreatedAt,
		UpdatedAt:    sm.UpdatedAt,
	}
}

func (s *SurrealStore) UpsertMemories(ctx context.Context, memories []models.Memory) (int, error) {
	added := 0
	for _, m := range memories {
		if m.ID.IsZero() {
			continue
		}
		existing, err := surrealdb.Select[surrealMemory](ctx, s.db, m.ID.RecordID())
		if err != nil && handleNotFound(err) != nil {
			return added, fmt.Errorf("failed to check memory: %w", err)
		}
		record := surrealMemory{
			ID:           m.ID,
			DeviceID:     m.DeviceID,
			Content:      m.Content,
			Topic:        m.Topic,
			Importance:   m.Importance,
			SourceNoteID: m.SourceNoteID,
			Fingerprint:  m.Fingerprint,
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.UpdatedAt,
		}
		query := "UPSERT $id CONTENT $memory"
		params := map[string]any{
			"id":     m.ID.RecordID(),
			"memory": record,
		}
		if _, err := surrealdb.Query[any](ctx, s.db, query, params); err != nil {
			return added, fmt.Errorf("failed to upsert memory: %w", err)
		}
		if existing == nil {
			added++
		}
	}
	return added, nil
}

func (s *SurrealStore) ListMemories(ctx context.Context, deviceID string, limit int) ([]models.Memory, error) {
	query := "SELECT * FROM memories WHERE device_id = $device ORDER BY updated_at DESC"
	params := map[string]any{
		"device": deviceID,
	}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}
	result, err := surrealdb.Query[[]surrealMemory](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	memories := []models.Memory{}
	if result != nil && len(*result) > 0 {
		for _, sm := range (*result)[0].Result {
			memories = append(memories, sm.toModel())
		}
	}
	return memories, nil
}

func (s *SurrealStore) DeleteMemory(ctx context.Context, deviceID string, id models.MemoryID) error {
	query := "DELETE $id WHERE device_id = $device"
	params := map[string]any{
		"id":     id.RecordID(),
		"device": deviceID,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, query, params); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

func (s *SurrealStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	now := models.NowMillis()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	existing, err := s.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrEmailTaken
	}

	if _, err := surrealdb.Create[models.User](ctx, s.db, "users", user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	user, err := surrealdb.Select[models.User](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *SurrealStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT * FROM users WHERE string::lowercase(email) = $email LIMIT 1"
	params := map[string]any{
		"email": strings.ToLower(email),
	}
	result, err := surrealdb.Query[[]models.User](ctx, s.db, query, params)
	if err != nil {
		if store.IsMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		u := (*result)[0].Result[0]
		return &u, nil
	}
	return nil, nil
}
