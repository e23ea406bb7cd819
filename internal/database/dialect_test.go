package database

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("UpsertDocumentQuery", func(t *testing.T) {
		if !strings.Contains(dialect.UpsertDocumentQuery(), "ON CONFLICT(path)") {
			t.Errorf("UpsertDocumentQuery() should upsert on path, got %q", dialect.UpsertDocumentQuery())
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("UpsertDocumentQuery is rewritten", func(t *testing.T) {
		result := dialect.RewriteQuery(dialect.UpsertDocumentQuery())
		if !strings.Contains(result, "VALUES ($1, $2,") {
			t.Errorf("RewriteQuery(UpsertDocumentQuery()) = %q, want numbered placeholders", result)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("UpsertDocumentQuery", func(t *testing.T) {
		if !strings.Contains(dialect.UpsertDocumentQuery(), "ON DUPLICATE KEY UPDATE") {
			t.Errorf("UpsertDocumentQuery() = %q, want ON DUPLICATE KEY UPDATE", dialect.UpsertDocumentQuery())
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT data FROM documents WHERE path = ?",
			expected: "SELECT data FROM documents WHERE path = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT data FROM documents WHERE path = ?",
			expected: "SELECT data FROM documents WHERE path = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO documents (path, data) VALUES (?, ?)",
			expected: "INSERT INTO documents (path, data) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE documents SET data = ? WHERE path = ?",
			expected: "UPDATE documents SET data = ? WHERE path = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestConfigureConnectionPoolLimits(t *testing.T) {
	cases := []struct {
		name    string
		dialect Dialect
		config  DialectConfig
	}{
		{"sqlite", NewSQLiteDialect(), DialectConfig{Path: filepath.Join(t.TempDir(), "pool.db")}},
		{"postgres", NewPostgresDialect(), DialectConfig{URL: "postgres://user@localhost:5432/screentime?sslmode=disable"}},
		{"mysql", NewMySQLDialect(), DialectConfig{URL: "user@tcp(localhost:3306)/screentime"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, err := sql.Open(tc.dialect.DriverName(), tc.dialect.DSN(tc.config))
			if err != nil {
				t.Fatalf("sql.Open() error = %v", err)
			}
			defer db.Close()

			if err := tc.dialect.ConfigureConnection(db); err != nil {
				t.Fatalf("ConfigureConnection() error = %v", err)
			}
			if got := db.Stats().MaxOpenConnections; got != 25 {
				t.Errorf("MaxOpenConnections = %d, want 25", got)
			}
		})
	}
}
