package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/xemwebe/finql/internal/errors"
)

// Backend identifies the storage engine behind a connection URL.
type Backend string

const (
	Postgres Backend = "postgres"
	SQLite   Backend = "sqlite"
)

// Config holds database configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Env selects the verbosity of the GORM logger.
	Env string
}

// Backend returns the engine selected by the URL scheme.
// postgres:// and postgresql:// select PostgreSQL, sqlite:// selects SQLite.
func (c *Config) Backend() (Backend, error) {
	u, err := url.Parse(c.URL)
	if err != nil || c.URL == "" {
		return "", apperrors.WithMessage(apperrors.ErrConnectionFailed, "invalid database URL")
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite":
		if c.sqlitePath() == "" {
			return "", apperrors.WithMessage(apperrors.ErrConnectionFailed, "sqlite URL has no file path")
		}
		return SQLite, nil
	default:
		return "", apperrors.WithMessage(apperrors.ErrConnectionFailed,
			fmt.Sprintf("unsupported database scheme %q", u.Scheme))
	}
}

// DSN returns the connection string understood by the GORM driver.
func (c *Config) DSN() (string, error) {
	backend, err := c.Backend()
	if err != nil {
		return "", err
	}
	if backend == SQLite {
		return c.sqlitePath() + "?_foreign_keys=1&_busy_timeout=5000", nil
	}
	return c.URL, nil
}

// MigrateURL returns the URL understood by golang-migrate.
// SQLite migrations run with foreign keys disabled so tables can be rebuilt.
func (c *Config) MigrateURL() (string, error) {
	backend, err := c.Backend()
	if err != nil {
		return "", err
	}
	if backend == SQLite {
		return "sqlite3://" + c.sqlitePath() + "?_foreign_keys=0", nil
	}
	return c.URL, nil
}

func (c *Config) sqlitePath() string {
	path := strings.TrimPrefix(c.URL, "sqlite://")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}
