// Package dbtest открывает временную SQLite базу с рабочей схемой для тестов.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dosada05/alumni-network/db"
)

// DSN возвращает строку подключения modernc.org/sqlite для файла path.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", path)
}

// New создаёт базу в t.TempDir() и закрывает её по окончании теста.
func New(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.Connect(db.DriverSQLite, DSN(filepath.Join(t.TempDir(), "alumni.db")), 5*time.Second)
	if err != nil {
		t.Fatalf("dbtest: connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	return conn
}
