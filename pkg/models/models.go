package models

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// Field limits applied to AI-produced values before they enter the data model.
const (
	MaxTags          = 12
	MaxCategoryLen   = 48
	MaxMemoryContent = 1000
	MaxMemoryTopic   = 100
	MinImportance    = 1
	MaxImportance    = 5
)

// NowMillis returns the current wall-clock time in milliseconds since the
// Unix epoch. All note and memory timestamps use this resolution so the
// last-writer-wins comparison works the same on every device.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Tags is an ordered list of note tags. It round-trips as a plain JSON array
// on the wire and as a JSONB column under GORM.
type Tags []string

// Value implements the driver.Valuer interface for database storage
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface for database retrieval
func (t *Tags) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, t)
}

func (Tags) GormDataType() string { return "jsonb" }

// Note is the unit of user content. IDs are minted on the creating device;
// the server only ever upserts by ID within the owning user's scope.
//
// Lifecycle flags are exclusive: a note is active, archived, or trashed, and
// only an active note may be pinned. Normalize enforces this after every
// mutation rather than trusting callers.
type Note struct {
	ID          NoteID `gorm:"type:text;primary_key" json:"id"`
	UserID      UserID `gorm:"type:uuid;index" json:"-"`
	Title       string `json:"title"`
	Content     string `gorm:"type:text" json:"content"`
	Tags        Tags   `gorm:"type:jsonb" json:"tags"`
	Category    string `json:"category,omitempty"`
	AIGenerated bool   `json:"aiGenerated"`
	Pinned      bool   `json:"pinned"`
	Archived    bool   `json:"archived"`
	Trashed     bool   `json:"trashed"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `gorm:"index" json:"updatedAt"`
}

// Normalize restores the lifecycle invariant: archived and trashed notes lose
// their pin, and a trashed note is never also archived.
func (n *Note) Normalize() {
	if n.Trashed {
		n.Archived = false
	}
	if n.Archived || n.Trashed {
		n.Pinned = false
	}
	n.Tags = NormalizeTags(n.Tags)
}

// Clone returns a deep copy so stored notes are never aliased by callers.
func (n Note) Clone() Note {
	out := n
	if n.Tags != nil {
		out.Tags = append(Tags(nil), n.Tags...)
	}
	return out
}

// Memory is a durable fact extracted from note content, scoped to the device
// that produced it. The fingerprint is the dedup key: re-extracting the same
// fact replaces the earlier record instead of accumulating duplicates.
type Memory struct {
	ID           MemoryID `gorm:"type:uuid;primary_key" json:"id"`
	DeviceID     string   `gorm:"index" json:"deviceId"`
	Content      string   `gorm:"type:text" json:"content"`
	Topic        string   `json:"topic,omitempty"`
	Importance   int      `json:"importance"`
	SourceNoteID string   `json:"sourceNoteId,omitempty"`
	Fingerprint  string   `gorm:"index" json:"fingerprint"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
}

// Normalize applies the field limits and derives the fingerprint and ID from
// the content. Returns false when the memory is empty and should be dropped.
func (m *Memory) Normalize() bool {
	m.Content = Truncate(strings.TrimSpace(m.Content), MaxMemoryContent)
	if m.Content == "" {
		return false
	}
	m.Topic = Truncate(strings.TrimSpace(m.Topic), MaxMemoryTopic)
	m.Importance = ClampImportance(m.Importance)
	m.Fingerprint = Fingerprint(m.Content)
	if m.ID.IsZero() {
		m.ID = NewMemoryIDForFingerprint(m.DeviceID, m.Fingerprint)
	}
	return true
}

// User represents a user account using typed IDs
type User struct {
	ID           UserID `gorm:"type:uuid;primary_key" json:"id"`
	Email        string `gorm:"unique;not null" json:"email"`
	Name         string `gorm:"not null" json:"name"`
	PasswordHash string `gorm:"not null" json:"-" cbor:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Fingerprint hashes note or memory content into its dedup key: lowercase,
// collapse runs of whitespace, sha256 hex.
func Fingerprint(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	normalized = strings.Join(strings.Fields(normalized), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeTags lowercases and trims each tag, drops empties, dedups
// case-insensitively keeping first occurrence, and caps the list at MaxTags.
func NormalizeTags(tags []string) Tags {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make(Tags, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ClampImportance forces an importance score into the 1..5 range.
func ClampImportance(v int) int {
	if v < MinImportance {
		return MinImportance
	}
	if v > MaxImportance {
		return MaxImportance
	}
	return v
}

// Truncate cuts s to at most n runes without splitting a multi-byte rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// IsBlank reports whether s contains no printable characters.
func IsBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
