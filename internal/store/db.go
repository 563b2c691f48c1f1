package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/perfpulse/meetsched/internal/domain"
)

// Store implements domain.MeetingStore, domain.CredentialStore, and
// domain.EmployeeGraphStore on a single GORM handle.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and returns a store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing GORM handle, used by tests with a SQLite
// dialector.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for all persisted entities.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&domain.User{},
		&domain.Employee{},
		&domain.Team{},
		&domain.OAuthCredential{},
		&domain.MeetingRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping verifies the underlying connection, used by the readiness probe.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
