// Package testutil provides test helpers for setting up migrated SQLite
// databases, creating fixtures, and making assertions.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xemwebe/finql/internal/database"
	"github.com/xemwebe/finql/internal/logger"

	"gorm.io/gorm"
)

// NewTestDatabaseConfig returns a configuration pointing at a fresh SQLite file
// inside the test's temporary directory. Nothing is migrated.
func NewTestDatabaseConfig(t *testing.T) *database.Config {
	t.Helper()
	logger.Init("test")

	return &database.Config{
		URL:          "sqlite://" + filepath.Join(t.TempDir(), "finql.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		Env:          "test",
	}
}

// SetupTestDB creates a SQLite database migrated with the embedded migrations.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return setupMigratedDB(t, NewTestDatabaseConfig(t))
}

// SetupPostgresTestDB creates a PostgreSQL schema migrated with the embedded
// migrations. The test is skipped unless FINQL_TEST_DATABASE_URL is set.
func SetupPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return setupMigratedDB(t, NewPostgresTestConfig(t))
}

func setupMigratedDB(t *testing.T, cfg *database.Config) *gorm.DB {
	t.Helper()

	mig, err := database.NewMigrator(cfg)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := mig.Up(); err != nil {
		mig.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	mig.Close()

	mgr, err := database.NewManager(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return mgr.DB()
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}
