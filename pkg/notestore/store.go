// Package notestore implements the local, device-side note collection: an
// ordered in-memory set of notes persisted as a single JSON snapshot with
// debounced writes.
//
// The store is the single writer for its snapshot file. Writes go through a
// temp-file-then-rename so a crash mid-write leaves the previous snapshot
// intact. Every successful mutation notifies registered observers (the sync
// engine and the enrichment automator) after the store lock is released.
package notestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell/pkg/debounce"
	"github.com/notewell/notewell/pkg/models"
)

// persistDelay is how long the store waits after the last mutation before
// writing the snapshot. Typing produces a mutation per keystroke; one write
// per pause is enough.
const persistDelay = 200 * time.Millisecond

// Patch is a partial note update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Content     *string
	Tags        *models.Tags
	Category    *string
	AIGenerated *bool
	Pinned      *bool
	Archived    *bool
	Trashed     *bool
	// UpdatedAt, when set, is applied verbatim instead of advancing to
	// now. Only reconciliation uses this: user edits always move the
	// clock forward so last-writer-wins sees them.
	UpdatedAt *int64
}

// Store is the local note collection. All methods are safe for concurrent
// use.
type Store struct {
	mu       sync.Mutex
	notes    []models.Note
	loaded   bool
	path     string
	saver    *debounce.Debouncer
	onChange []func()
	log      zerolog.Logger
}

// New creates a store persisting to path. Call Load before mutating.
func New(path string, log zerolog.Logger) *Store {
	s := &Store{path: path, log: log.With().Str("component", "notestore").Logger()}
	s.saver = debounce.New(persistDelay, s.save)
	return s
}

// OnChange registers fn to run after every successful mutation. Observers
// run outside the store lock and must not assume the state they were
// notified for is still current.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Load reads the snapshot from disk. A missing file is an empty collection,
// not an error. Mutations before Load return ErrNotLoaded so a slow startup
// cannot silently clobber the snapshot with an empty state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}
	for i := range notes {
		notes[i].Normalize()
	}
	s.notes = notes
	s.loaded = true
	return nil
}

// ErrNotLoaded is returned by mutations attempted before Load.
var ErrNotLoaded = fmt.Errorf("note store not loaded")

// Notes returns a copy of the collection in display order.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out
}

// Get returns a copy of the note with the given ID, or false.
func (s *Store) Get(id models.NoteID) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return models.Note{}, false
}

// Put inserts a new note at the front of the collection. An existing note
// with the same ID is replaced in place.
func (s *Store) Put(n models.Note) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	now := models.NowMillis()
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	if n.UpdatedAt == 0 {
		n.UpdatedAt = now
	}
	n.Normalize()
	replaced := false
	for i := range s.notes {
		if s.notes[i].ID == n.ID {
			s.notes[i] = n.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.notes = append([]models.Note{n.Clone()}, s.notes...)
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// Apply merges a partial update into the note with the given ID and advances
// UpdatedAt to now unless the patch pins it explicitly.
func (s *Store) Apply(id models.NoteID, p Patch) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	idx := -1
	for i := range s.notes {
		if s.notes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("note %s not found", id)
	}
	n := s.notes[idx].Clone()
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = append(models.Tags(nil), *p.Tags...)
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	if p.AIGenerated != nil {
		n.AIGenerated = *p.AIGenerated
	}
	if p.Pinned != nil {
		n.Pinned = *p.Pinned
	}
	if p.Archived != nil {
		n.Archived = *p.Archived
	}
	if p.Trashed != nil {
		n.Trashed = *p.Trashed
	}
	if p.UpdatedAt != nil {
		n.UpdatedAt = *p.UpdatedAt
	} else {
		n.UpdatedAt = models.NowMillis()
	}
	n.Normalize()
	s.notes[idx] = n
	s.mu.Unlock()
	s.changed()
	return nil
}

// Remove deletes a note from the collection. Removing a missing note is a
// no-op.
func (s *Store) Remove(id models.NoteID) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	removed := false
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.changed()
	}
	return nil
}

// ReplaceAll installs a reconciled collection wholesale, preserving the
// given order. Timestamps are taken as-is: reconciliation has already
// decided which versions win, and advancing clocks here would make every
// pull look like a local edit.
func (s *Store) ReplaceAll(notes []models.Note) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	copied := make([]models.Note, len(notes))
	for i, n := range notes {
		n.Normalize()
		copied[i] = n.Clone()
	}
	s.notes = copied
	s.mu.Unlock()
	s.changed()
	return nil
}

// Flush forces any pending snapshot write. Call at shutdown.
func (s *Store) Flush() {
	s.saver.Flush()
}

// Close flushes and stops the persistence debouncer.
func (s *Store) Close() {
	s.saver.Flush()
	s.saver.Stop()
}

func (s *Store) changed() {
	s.saver.Trigger()
	s.mu.Lock()
	observers := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// save writes the whole collection as one JSON document via temp file and
// rename.
func (s *Store) save() {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.notes, "", "  ")
	s.mu.Unlock()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error().Err(err).Msg("failed to create snapshot dir")
		return
	}
	tmp, err := os.CreateTemp(dir, ".notes-*.json")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create temp snapshot")
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.log.Error().Err(err).Msg("failed to write snapshot")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.log.Error().Err(err).Msg("failed to close snapshot")
		return
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		s.log.Error().Err(err).Msg("failed to replace snapshot")
		return
	}
	s.log.Debug().Int("bytes", len(data)).Msg("snapshot saved")
}
