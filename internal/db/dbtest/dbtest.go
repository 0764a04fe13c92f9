// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DaniDevGS/triven-shop/internal/db"
)

// Open returns a migrated in-memory database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return open(t, dsn)
}

// OpenFile returns a migrated file-backed database where every transaction
// takes the write lock on BEGIN. Concurrent writers queue behind each other
// instead of failing, which is what the concurrency tests need.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=10000", path)
	return open(t, dsn)
}

func open(t testing.TB, dsn string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to auto-migrate models: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return conn
}
