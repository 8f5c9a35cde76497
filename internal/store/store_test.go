// store_test.go provides a shared test database helper for all store
// integration tests. Every test gets its own migrated SQLite file.
package store

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"orbit/internal/database"
)

// testDB opens a fresh database in a temp directory and runs migrations.
// A cleanup function is registered to close the connection when the test
// finishes.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "orbit.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}
