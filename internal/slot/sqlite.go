package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// slotRecord is one row of the kv_slots table.
type slotRecord struct {
	Key       string    `gorm:"column:slot_key;primaryKey;size:128"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler interface.
func (slotRecord) TableName() string {
	return "kv_slots"
}

// SQLiteSlot stores values in a single SQLite table.
type SQLiteSlot struct {
	db *gorm.DB
}

// NewSQLiteSlot opens (or creates) the database at path and migrates the
// slot table.
func NewSQLiteSlot(path string) (*SQLiteSlot, error) {
	if path == "" {
		return nil, fmt.Errorf("open sqlite slot: path must be set")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&slotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite slot table: %w", err)
	}

	return &SQLiteSlot{db: db}, nil
}

// Read returns the value stored under key.
func (s *SQLiteSlot) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var rec slotRecord
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("sqlite read %s: %w", key, err)
	}

	return rec.Value, nil
}

// Write upserts the value for key in a single statement.
func (s *SQLiteSlot) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	rec := slotRecord{
		Key:       key,
		Value:     append([]byte{}, data...),
		UpdatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("sqlite write %s: %w", key, err)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteSlot) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sqlite handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}
