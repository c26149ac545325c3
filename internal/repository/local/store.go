// Package local is a single-file SQLite backend for campaigns. The server
// falls back to it when Postgres is unreachable and the batch runner uses it
// to keep finished games.
package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/freeeve/race-to-moscow/internal/model"
)

type userRow struct {
	ID          string `gorm:"primaryKey"`
	Provider    string `gorm:"uniqueIndex:idx_provider_subject"`
	ProviderID  string `gorm:"uniqueIndex:idx_provider_subject"`
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRow) TableName() string { return "users" }

type sessionRow struct {
	ID         string `gorm:"primaryKey"`
	OwnerID    string `gorm:"index"`
	Name       string
	Faction    string
	Mode       string
	Seed       int64
	Status     string
	Version    int
	Turn       int
	Medals     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type snapshotRow struct {
	ID        string `gorm:"primaryKey"`
	SessionID string `gorm:"uniqueIndex:idx_session_version"`
	Version   int    `gorm:"uniqueIndex:idx_session_version"`
	Op        string
	LogLine   string
	State     datatypes.JSON
	CreatedAt time.Time
}

func (snapshotRow) TableName() string { return "snapshots" }

var models = []any{&userRow{}, &sessionRow{}, &snapshotRow{}}

// Store implements the user, session and snapshot repositories on SQLite.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open opens (or creates) the database at path. An empty path gives a
// private in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if path == "" {
		log.Info().Msg("Using in-memory SQLite store")
	} else {
		log.Info().Str("path", path).Msg("Using local SQLite store")
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// first runs q.First and maps a missing row to found == false.
func first(q *gorm.DB, dest any) (bool, error) {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// --- users ---

func (r userRow) model() *model.User {
	return &model.User{
		ID: r.ID, Provider: r.Provider, ProviderID: r.ProviderID,
		DisplayName: r.DisplayName, AvatarURL: r.AvatarURL,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (s *Store) FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error) {
	var row userRow
	ok, err := first(s.db.WithContext(ctx).Where("provider = ? AND provider_id = ?", provider, providerID), &row)
	if err != nil {
		return nil, fmt.Errorf("find user by provider: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return row.model(), nil
}

// findUser backs Users.FindByID; Sessions owns the exported FindByID name.
func (s *Store) findUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	ok, err := first(s.db.WithContext(ctx).Where("id = ?", id), &row)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return row.model(), nil
}

func (s *Store) Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := first(tx.Where("provider = ? AND provider_id = ?", provider, providerID), &row)
		if err != nil {
			return err
		}
		if !ok {
			row = userRow{ID: uuid.NewString(), Provider: provider, ProviderID: providerID, DisplayName: displayName, AvatarURL: avatarURL}
			return tx.Create(&row).Error
		}
		row.DisplayName = displayName
		row.AvatarURL = avatarURL
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return row.model(), nil
}

func (s *Store) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).
		Updates(map[string]any{"display_name": displayName, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("update display name: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update display name: user %s not found", id)
	}
	return nil
}
