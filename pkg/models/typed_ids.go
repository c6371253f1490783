package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NoteID is a typed ID for notes. Unlike the other IDs it wraps an opaque
// client-generated string rather than a UUID: note identifiers are minted on
// the device that created the note and the server treats them as-is.
type NoteID struct {
	id string
}

func NewNoteID() NoteID {
	return NoteID{id: uuid.New().String()}
}

func ParseNoteID(s string) (NoteID, error) {
	if strings.TrimSpace(s) == "" {
		return NoteID{}, fmt.Errorf("invalid note ID: empty")
	}
	return NoteID{id: s}, nil
}

func (n NoteID) String() string { return n.id }
func (n NoteID) IsZero() bool   { return n.id == "" }

func (n NoteID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "notes",
		ID:    n.id,
	}
}

func (n NoteID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.id)
}

func (n *NoteID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.id = s
	return nil
}

func (n NoteID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"notes", n.id},
	})
}

func (n *NoteID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORStringID(data, "notes", &n.id)
}

func (n NoteID) Value() (driver.Value, error) {
	if n.IsZero() {
		return nil, nil
	}
	return n.id, nil
}

func (n *NoteID) Scan(value any) error {
	if value == nil {
		n.id = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		n.id = v
	case []byte:
		n.id = string(v)
	default:
		return fmt.Errorf("cannot scan type %T into NoteID", value)
	}
	return nil
}

func (NoteID) GormDataType() string { return "text" }

// MemoryID is a typed ID for memories
type MemoryID struct {
	uuid uuid.UUID
}

// memoryIDNamespace seeds deterministic memory IDs so that the same
// device/fingerprint pair always maps to the same record.
var memoryIDNamespace = uuid.MustParse("8f2b6a1c-5d3e-4f70-9b42-c1a0d6e8b354")

func NewMemoryID() MemoryID {
	return MemoryID{uuid: uuid.New()}
}

func NewMemoryIDFromUUID(id uuid.UUID) MemoryID {
	return MemoryID{uuid: id}
}

// NewMemoryIDForFingerprint derives a stable ID from the owning device and
// the content fingerprint. Re-extracting the same fact upserts in place.
func NewMemoryIDForFingerprint(deviceID, fingerprint string) MemoryID {
	return MemoryID{uuid: uuid.NewSHA1(memoryIDNamespace, []byte(deviceID+":"+fingerprint))}
}

func ParseMemoryID(s string) (MemoryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MemoryID{}, fmt.Errorf("invalid memory ID: %w", err)
	}
	return MemoryID{uuid: id}, nil
}

func (m MemoryID) UUID() uuid.UUID { return m.uuid }
func (m MemoryID) String() string  { return m.uuid.String() }
func (m MemoryID) IsZero() bool    { return m.uuid == uuid.Nil }

func (m MemoryID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "memories",
		ID:    m.uuid.String(),
	}
}

func (m MemoryID) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.uuid.String())
}

func (m *MemoryID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	m.uuid = id
	return nil
}

func (m MemoryID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"memories", m.uuid.String()},
	})
}

func (m *MemoryID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "memories", &m.uuid)
}

func (m MemoryID) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}
	return m.uuid.String(), nil
}

func (m *MemoryID) Scan(value any) error {
	return scanUUID(value, &m.uuid)
}

func (MemoryID) GormDataType() string { return "uuid" }

// UserID is a typed ID for users
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "users",
		ID:    u.uuid.String(),
	}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	u.uuid = id
	return nil
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"users", u.uuid.String()},
	})
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "users", &u.uuid)
}

func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.uuid.String(), nil
}

func (u *UserID) Scan(value any) error {
	return scanUUID(value, &u.uuid)
}

func (UserID) GormDataType() string { return "uuid" }

// Helper functions

// scanUUID is a helper for implementing sql.Scanner interface for PostgreSQL/GORM
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// unmarshalCBORID is a helper for unmarshaling SurrealDB RecordID from CBOR.
// SurrealDB uses CBOR tag 8 to identify RecordID types in its binary protocol.
// The RecordID is encoded as [table_name, id_string] within the tag.
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	var idStr string
	if err := unmarshalCBORStringID(data, expectedTable, &idStr); err != nil {
		return err
	}

	parsedUUID, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsedUUID
	return nil
}

func unmarshalCBORStringID(data []byte, expectedTable string, target *string) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// Check if this is a CBOR tag (major type 6)
	majorType := data[0] >> 5
	if majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	// SurrealDB uses tag 8 for RecordID
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}

	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	*target = idStr
	return nil
}
