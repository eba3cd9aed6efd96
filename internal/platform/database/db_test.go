package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesDirectoryAndSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "invoicedesk.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"folders", "files"} {
		var name string
		err := db.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}

	// 재실행해도 안전해야 함
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("re-run migrate: %v", err)
	}

	var rows int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatalf("count schema_version rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one schema_version row after two migrations, got %d", rows)
	}
	version, err := CurrentVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, version)
	}
}

func TestSchema_AllowsSingleTrashFolder(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "INSERT INTO folders (id, name, is_trash, created_at) VALUES ('trash', 'Trash', 1, 0)"); err != nil {
		t.Fatalf("insert trash folder: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO folders (id, name, is_trash, created_at) VALUES ('trash-2', 'Trash 2', 1, 0)"); err == nil {
		t.Fatal("expected second trash folder to violate unique index")
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO folders (id, name, is_trash, created_at) VALUES ('a', 'A', 0, 0), ('b', 'B', 0, 0)"); err != nil {
		t.Fatalf("insert regular folders: %v", err)
	}
}
