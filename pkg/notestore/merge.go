package notestore

import (
	"fmt"

	"github.com/notewell/notewell/pkg/models"
)

// ApplyMerge folds two notes into one under a single lock acquisition.
//
// The note with the earlier CreatedAt becomes the base and receives the
// merged title, content, and the union of both tag sets; the other note is
// trashed. Merging into the older note keeps the stable ID that other
// devices are most likely to already have. selectedID is the note the caller
// currently has open; the returned ID is where that selection should move
// (the base, if the selection was the note that got trashed).
//
// Observers see the merge as one change: either both halves applied or
// neither.
func (s *Store) ApplyMerge(aID, bID models.NoteID, title, content string, selectedID models.NoteID) (models.NoteID, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return selectedID, ErrNotLoaded
	}
	ai, bi := -1, -1
	for i := range s.notes {
		switch s.notes[i].ID {
		case aID:
			ai = i
		case bID:
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		s.mu.Unlock()
		return selectedID, fmt.Errorf("merge notes not found")
	}

	base, other := ai, bi
	if s.notes[bi].CreatedAt < s.notes[ai].CreatedAt {
		base, other = bi, ai
	}

	now := models.NowMillis()

	merged := s.notes[base].Clone()
	if title != "" {
		merged.Title = title
	}
	if content != "" {
		merged.Content = content
	}
	merged.Tags = models.NormalizeTags(append(append([]string{}, merged.Tags...), s.notes[other].Tags...))
	merged.UpdatedAt = now
	merged.Normalize()
	s.notes[base] = merged

	trashed := s.notes[other].Clone()
	trashed.Trashed = true
	trashed.UpdatedAt = now
	trashed.Normalize()
	s.notes[other] = trashed

	result := selectedID
	if selectedID == trashed.ID {
		result = merged.ID
	}
	s.mu.Unlock()
	s.changed()
	return result, nil
}
