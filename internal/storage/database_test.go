package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		wantErr      bool
		wantMaxConns int
	}{
		{name: "valid path", path: filepath.Join(t.TempDir(), "test.db"), wantMaxConns: 25},
		{name: "in memory", path: ":memory:", wantMaxConns: 1},
		{name: "invalid path", path: "/invalid/path/to/db.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("New() expected error, got nil")
					_ = db.Close()
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			defer func() {
				_ = db.Close()
			}()

			if got := db.Stats().MaxOpenConnections; got != tt.wantMaxConns {
				t.Errorf("MaxOpenConnections = %d, want %d", got, tt.wantMaxConns)
			}
		})
	}
}

func TestNew_EnablesForeignKeys(t *testing.T) {
	db := newTestDB(t)

	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("Failed to check foreign keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("New() should enable foreign keys")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}

	for _, table := range []string{"collections", "chunks"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Migrate() table %s not found", table)
		}
	}
}
