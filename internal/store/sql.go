package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// collectionRecord is one row of the collections table created by the
// database migrations
type collectionRecord struct {
	Name      string `gorm:"primaryKey;type:varchar(64)"`
	Data      string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (collectionRecord) TableName() string { return "collections" }

// SQLBackend keeps every collection as one row, committing in a database transaction
type SQLBackend struct {
	db *gorm.DB
}

func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Read(ctx context.Context, name string) ([]byte, error) {
	var rec collectionRecord
	err := b.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, err
	}
	return []byte(rec.Data), nil
}

func (b *SQLBackend) Commit(ctx context.Context, writes map[string][]byte) error {
	if len(writes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range sortedNames(writes) {
			rec := collectionRecord{Name: name, Data: string(writes[name]), UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
			}).Create(&rec).Error
			if err != nil {
				return fmt.Errorf("upsert %s: %w", name, err)
			}
		}
		return nil
	})
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
