package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/royaliq/storefront/pkg/db"
)

// Entry is the single table the gateway owns: one row per durable key.
type Entry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "localstore_entries"
}

// DBStore backs the localstore with the gorm client (sqlite file by default).
type DBStore struct {
	conn *gorm.DB
}

// NewDBStore migrates the entries table and returns the store.
func NewDBStore(client *db.Client) (*DBStore, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if err := client.DB().AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating localstore table: %w", err)
	}
	return &DBStore{conn: client.DB()}, nil
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.conn.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		_ = s.conn.WithContext(ctx).Delete(&Entry{}, "key = ?", key).Error
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

func (s *DBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		entry.ExpiresAt = &expires
	}
	return s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&entry).Error
}

func (s *DBStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.conn.WithContext(ctx).Delete(&Entry{}, "key IN ?", keys).Error
}
