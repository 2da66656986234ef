package infrastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/streamsaviour-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// HistoryRecord is one persisted history snapshot. Payload holds the JSON
// encoded searches and downloads.
type HistoryRecord struct {
	Namespace string `gorm:"primaryKey"`
	Payload   string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name
func (HistoryRecord) TableName() string {
	return "history_records"
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db        *gorm.DB
	namespace string
}

// NewSQLiteHistoryRepository opens (or creates) the history database
func NewSQLiteHistoryRepository(dbPath, namespace string) (*SQLiteHistoryRepository, error) {
	if namespace == "" {
		return nil, fmt.Errorf("history namespace must be specified")
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&HistoryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db, namespace: namespace}, nil
}

// Load returns the stored snapshot, or an empty one when nothing was saved
func (r *SQLiteHistoryRepository) Load() (*domain.HistorySnapshot, error) {
	var record HistoryRecord
	err := r.db.First(&record, "namespace = ?", r.namespace).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.HistorySnapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var snapshot domain.HistorySnapshot
	if err := json.Unmarshal([]byte(record.Payload), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &snapshot, nil
}

// Save replaces the stored snapshot
func (r *SQLiteHistoryRepository) Save(snapshot *domain.HistorySnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	record := HistoryRecord{
		Namespace: r.namespace,
		Payload:   string(data),
		UpdatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&record).Error
}

// LastSaved returns when the snapshot was last written, zero if never
func (r *SQLiteHistoryRepository) LastSaved() (time.Time, error) {
	var record HistoryRecord
	err := r.db.Select("updated_at").Where("namespace = ?", r.namespace).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return record.UpdatedAt, nil
}

// Ping checks the database connection
func (r *SQLiteHistoryRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
