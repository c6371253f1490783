package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteNormalizeLifecycle(t *testing.T) {
	n := Note{Pinned: true, Archived: true}
	n.Normalize()
	assert.False(t, n.Pinned, "archiving clears pinned")
	assert.True(t, n.Archived)

	n = Note{Pinned: true, Archived: true, Trashed: true}
	n.Normalize()
	assert.False(t, n.Pinned)
	assert.False(t, n.Archived, "trashing clears archived")
	assert.True(t, n.Trashed)
}

func TestNoteCloneIsDeep(t *testing.T) {
	n := Note{ID: NewNoteID(), Tags: Tags{"a", "b"}}
	c := n.Clone()
	c.Tags[0] = "mutated"
	assert.Equal(t, "a", n.Tags[0])
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Work ", "work", "WORK", "", "ideas"})
	assert.Equal(t, Tags{"work", "ideas"}, got)

	var many []string
	for i := 0; i < 30; i++ {
		many = append(many, string(rune('a'+i)))
	}
	assert.Len(t, NormalizeTags(many), MaxTags)

	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{"  ", ""}))
}

func TestFingerprintNormalizesWhitespaceAndCase(t *testing.T) {
	a := Fingerprint("Prefers  dark\tmode")
	b := Fingerprint("prefers dark mode")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Fingerprint("prefers light mode"))
	assert.Len(t, a, 64)
}

func TestMemoryNormalize(t *testing.T) {
	m := Memory{DeviceID: "dev-1", Content: "  Allergic to peanuts  ", Importance: 9}
	require.True(t, m.Normalize())
	assert.Equal(t, "Allergic to peanuts", m.Content)
	assert.Equal(t, MaxImportance, m.Importance)
	assert.Equal(t, Fingerprint("Allergic to peanuts"), m.Fingerprint)
	assert.False(t, m.ID.IsZero())

	// Same device + same content always derives the same ID.
	m2 := Memory{DeviceID: "dev-1", Content: "allergic   to peanuts"}
	require.True(t, m2.Normalize())
	assert.Equal(t, m.ID, m2.ID)

	// Different device gets a distinct ID for identical content.
	m3 := Memory{DeviceID: "dev-2", Content: "Allergic to peanuts"}
	require.True(t, m3.Normalize())
	assert.NotEqual(t, m.ID, m3.ID)

	empty := Memory{DeviceID: "dev-1", Content: "   "}
	assert.False(t, empty.Normalize())
}

func TestClampImportance(t *testing.T) {
	assert.Equal(t, 1, ClampImportance(0))
	assert.Equal(t, 1, ClampImportance(-3))
	assert.Equal(t, 3, ClampImportance(3))
	assert.Equal(t, 5, ClampImportance(8))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
	// Rune-safe on multi-byte input.
	assert.Equal(t, "hél", Truncate("héllo", 3))
}

func TestNoteJSONWireFormat(t *testing.T) {
	n := Note{
		Title:       "t",
		AIGenerated: true,
		CreatedAt:   1700000000000,
		UpdatedAt:   1700000000001,
	}
	id, err := ParseNoteID("note-123")
	require.NoError(t, err)
	n.ID = id

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "note-123", raw["id"])
	assert.Equal(t, true, raw["aiGenerated"])
	assert.Equal(t, float64(1700000000000), raw["createdAt"])
	assert.NotContains(t, raw, "UserID", "owner never leaks onto the wire")
}

func TestTypedIDRoundTrips(t *testing.T) {
	u := NewUserID()
	data, err := json.Marshal(u)
	require.NoError(t, err)
	var back UserID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, u, back)

	cb, err := u.MarshalCBOR()
	require.NoError(t, err)
	var cback UserID
	require.NoError(t, cback.UnmarshalCBOR(cb))
	assert.Equal(t, u, cback)

	_, err = ParseNoteID("")
	assert.Error(t, err)
}
