package services

import (
	"testing"

	"gorm.io/gorm"

	"github.com/xemwebe/finql/internal/testutil"
)

// eachBackend runs fn once with a SQLite setup and once with a PostgreSQL
// setup. The PostgreSQL run is skipped unless FINQL_TEST_DATABASE_URL is set.
func eachBackend(t *testing.T, fn func(t *testing.T, setup func(*testing.T) *gorm.DB)) {
	t.Helper()

	backends := []struct {
		name  string
		setup func(*testing.T) *gorm.DB
	}{
		{"sqlite", testutil.SetupTestDB},
		{"postgres", testutil.SetupPostgresTestDB},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.setup)
		})
	}
}
