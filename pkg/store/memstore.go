package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/notewell/notewell/pkg/models"
)

// MemStore is an in-memory Store used by tests and the -memory server mode.
// All returned entities are deep copies so callers never alias internal
// state.
type MemStore struct {
	mu       sync.RWMutex
	notes    map[models.UserID]map[models.NoteID]models.Note
	memories map[models.MemoryID]models.Memory
	users    map[models.UserID]models.User
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		notes:    make(map[models.UserID]map[models.NoteID]models.Note),
		memories: make(map[models.MemoryID]models.Memory),
		users:    make(map[models.UserID]models.User),
	}
}

func (s *MemStore) UpsertNotes(ctx context.Context, userID models.UserID, notes []models.Note) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.notes[userID]
	if byID == nil {
		byID = make(map[models.NoteID]models.Note)
		s.notes[userID] = byID
	}
	count := 0
	for _, n := range notes {
		if n.ID.IsZero() {
			continue
		}
		n.UserID = userID
		byID[n.ID] = n.Clone()
		count++
	}
	return count, nil
}

func (s *MemStore) ListNotesSince(ctx context.Context, userID models.UserID, since int64) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Note{}
	for _, n := range s.notes[userID] {
		if n.UpdatedAt >= since {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemStore) DeleteNote(ctx context.Context, userID models.UserID, id models.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes[userID], id)
	return nil
}

func (s *MemStore) UpsertMemories(ctx context.Context, memories []models.Memory) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, m := range memories {
		if m.ID.IsZero() {
			continue
		}
		if _, exists := s.memories[m.ID]; !exists {
			added++
		}
		s.memories[m.ID] = m
	}
	return added, nil
}

func (s *MemStore) ListMemories(ctx context.Context, deviceID string, limit int) ([]models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Memory{}
	for _, m := range s.memories {
		if m.DeviceID == deviceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) DeleteMemory(ctx context.Context, deviceID string, id models.MemoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memories[id]; ok && m.DeviceID == deviceID {
		delete(s.memories, id)
	}
	return nil
}

func (s *MemStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	now := models.NowMillis()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemStore) Migrate(ctx context.Context) error { return nil }

func (s *MemStore) Close() error { return nil }
