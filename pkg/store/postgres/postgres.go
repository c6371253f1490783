// Package postgres implements [github.com/notewell/notewell/pkg/store.Store]
// using PostgreSQL with GORM.
//
// Upserts use INSERT ... ON CONFLICT so sync pushes and memory extraction are
// single round trips per record under ACID guarantees. Schema comes from
// GORM's AutoMigrate over the model struct tags; AutoMigrate only adds schema
// elements, never removes data, so running it at every startup is safe.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/store"
)

// PostgresStore implements the Store interface using PostgreSQL with GORM.
type PostgresStore struct {
	db *gorm.DB
}

var _ store.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(dsn string) (store.Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates or updates the notes, memories, and users tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.Note{},
		&models.Memory{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) UpsertNotes(ctx context.Context, userID models.UserID, notes []models.Note) (int, error) {
	count := 0
	for _, n := range notes {
		if n.ID.IsZero() {
			continue
		}
		n.UserID = userID
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&n).Error
		if err != nil {
			return count, fmt.Errorf("failed to upsert note: %w", err)
		}
		count++
	}
	return count, nil
}

func (s *PostgresStore) ListNotesSince(ctx context.Context, userID models.UserID, since int64) ([]models.Note, error) {
	notes := []models.Note{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, userID models.UserID, id models.NoteID) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Note{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertMemories(ctx context.Context, memories []models.Memory) (int, error) {
	added := 0
	for _, m := range memories {
		if m.ID.IsZero() {
			continue
		}
		// RowsAffected is 1 for both insert and update under
		// ON CONFLICT DO UPDATE, so check existence first to count
		// genuinely new records.
		var existing int64
		if err := s.db.WithContext(ctx).Model(&models.Memory{}).
			Where("id = ?", m.ID).Count(&existing).Error; err != nil {
			return added, fmt.Errorf("failed to check memory: %w", err)
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "topic", "importance", "source_note_id", "fingerprint", "updated_at"}),
		}).Create(&m).Error
		if err != nil {
			return added, fmt.Errorf("failed to upsert memory: %w", err)
		}
		if existing == 0 {
			added++
		}
	}
	return added, nil
}

func (s *PostgresStore) ListMemories(ctx context.Context, deviceID string, limit int) ([]models.Memory, error) {
	memories := []models.Memory{}
	q := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&memories).Error; err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	return memories, nil
}

func (s *PostgresStore) DeleteMemory(ctx context.Context, deviceID string, id models.MemoryID) error {
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Delete(&models.Memory{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	now := models.NowMillis()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return store.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "LOWER(email) = LOWER(?)", email).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		if store.IsMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}
