package testutil

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/xemwebe/finql/internal/database"
	"github.com/xemwebe/finql/internal/logger"
	"github.com/xemwebe/finql/internal/uuid"
)

// PostgresURLEnv names the variable pointing tests at a PostgreSQL server.
const PostgresURLEnv = "FINQL_TEST_DATABASE_URL"

// NewPostgresTestConfig returns a configuration whose search path is a fresh
// schema on the server named by FINQL_TEST_DATABASE_URL. The schema is dropped
// when the test finishes. Nothing is migrated. Without the variable the test
// is skipped.
func NewPostgresTestConfig(t *testing.T) *database.Config {
	t.Helper()

	base := os.Getenv(PostgresURLEnv)
	if base == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}
	logger.Init("test")

	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("invalid %s: %v", PostgresURLEnv, err)
	}

	admin, err := database.NewManager(&database.Config{URL: base, MaxOpenConns: 1, Env: "test"})
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	schema := "finql_test_" + strings.ReplaceAll(uuid.New(), "-", "")
	if err := admin.DB().Exec(`CREATE SCHEMA "` + schema + `"`).Error; err != nil {
		admin.Close()
		t.Fatalf("failed to create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		if err := admin.DB().Exec(`DROP SCHEMA "` + schema + `" CASCADE`).Error; err != nil {
			t.Errorf("failed to drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	return &database.Config{
		URL:          u.String(),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		Env:          "test",
	}
}
