package database

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Manager handles database operations
type Manager struct {
	db      *gorm.DB
	config  *Config
	backend Backend
}

// NewManager opens a connection pool for the configured backend and verifies
// that the database is reachable.
func NewManager(config *Config) (*Manager, error) {
	backend, err := config.Backend()
	if err != nil {
		return nil, err
	}
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch backend {
	case Postgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	case SQLite:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormLogLevel(config.Env)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConnectionFailed, fmt.Errorf("failed to connect to database: %w", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConnectionFailed, fmt.Errorf("failed to get underlying DB: %w", err))
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.ErrConnectionFailed, fmt.Errorf("failed to ping database: %w", err))
	}

	return &Manager{db: db, config: config, backend: backend}, nil
}

// RunMigrations applies all pending embedded migrations.
func (m *Manager) RunMigrations() error {
	logger.Get().Info("Running database migrations...")

	mig, err := NewMigrator(m.config)
	if err != nil {
		return err
	}
	defer mig.Close()

	if err := mig.Up(); err != nil {
		return err
	}

	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// DB returns the underlying GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Backend returns the storage engine this manager is connected to.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormLogLevel(env string) gormlogger.LogLevel {
	switch env {
	case "test":
		return gormlogger.Silent
	case "development", "":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}
