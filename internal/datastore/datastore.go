// Package datastore persists fall events to a local SQLite database so the
// node keeps a queryable record independent of the publish boundary.
package datastore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/novacare/fallguard-go/internal/conf"
)

// FallEvent is the persisted record of one detected fall.
type FallEvent struct {
	ID            uint      `gorm:"primaryKey"`
	EventID       string    `gorm:"uniqueIndex"` // uuid assigned at alert time
	Source        string    `gorm:"index"`       // camera source the fall was detected on
	Timestamp     time.Time `gorm:"index"`       // alert trigger time
	Confidence    float64   // confidence at trigger
	ClipReference string    // path or URL of the stored clip, may be a local placeholder
	DeviceID      string    // device identifier from settings
	CreatedAt     time.Time
}

// Interface abstracts the event log for substitution in tests.
type Interface interface {
	Save(event *FallEvent) error
	Get(eventID string) (*FallEvent, error)
	GetLast(limit int) ([]FallEvent, error)
	Close() error
}

// ErrEventNotFound is returned by Get when no event matches.
var ErrEventNotFound = errors.New("event not found")

// sqliteStore implements Interface on a SQLite database.
type sqliteStore struct {
	db *gorm.DB
}

// New opens the SQLite event log at the configured path, creating the
// schema if needed.
func New(settings *conf.SQLiteSettings) (Interface, error) {
	db, err := gorm.Open(sqlite.Open(settings.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", settings.Path, err)
	}

	if err := db.AutoMigrate(&FallEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Save inserts a fall event record.
func (s *sqliteStore) Save(event *FallEvent) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to save event %s: %w", event.EventID, err)
	}
	return nil
}

// Get retrieves one event by its event id.
func (s *sqliteStore) Get(eventID string) (*FallEvent, error) {
	var event FallEvent
	err := s.db.Where("event_id = ?", eventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return &event, nil
}

// GetLast returns the most recent events, newest first.
func (s *sqliteStore) GetLast(limit int) ([]FallEvent, error) {
	var events []FallEvent
	if err := s.db.Order("timestamp desc").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// Close closes the underlying database connection.
func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
