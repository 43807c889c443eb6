// Package profile looks up player display names in the account database.
package profile

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
)

var ErrNotFound = apperr.New(apperr.ErrNotFound, "profile not found")

type Store interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// User is the read model of the account service's users table.
type User struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string `gorm:"not null"`
}

func (User) TableName() string { return "users" }

type GormStore struct {
	db *gorm.DB
}

func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	return NewGormStore(db), nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DisplayName(ctx context.Context, userID string) (string, error) {
	var u User
	err := s.db.WithContext(ctx).Select("id", "display_name").First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return u.DisplayName, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StaticStore serves names from memory. An empty StaticStore stands in when
// no database is configured.
type StaticStore map[string]string

func (s StaticStore) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := s[userID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// Resolve returns the stored display name, else fallback, else userID.
func Resolve(ctx context.Context, store Store, userID, fallback string) (string, error) {
	name, err := store.DisplayName(ctx, userID)
	if err == nil && name != "" {
		return name, nil
	}
	if fallback == "" {
		fallback = userID
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fallback, err
	}
	return fallback, nil
}
