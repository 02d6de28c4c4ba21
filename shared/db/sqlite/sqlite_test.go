package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/dfryer1193/agromedia/shared/db"
)

func TestNewSQLiteConfig(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "explicit path", path: "/tmp/media.db", want: "/tmp/media.db"},
		{name: "default path", path: "", want: "./agromedia.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := NewSQLiteDB(NewSQLiteConfig(tt.path))
			if database.dbPath != tt.want {
				t.Errorf("dbPath = %v, want %v", database.dbPath, tt.want)
			}
		})
	}
}

func TestSQLiteDB_Connect(t *testing.T) {
	database := NewSQLiteDB(NewSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))

	if err := database.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer database.Close()

	if database.DB() == nil {
		t.Error("DB() returned nil after Connect()")
	}

	if err := database.Connect(); err == nil {
		t.Error("Connect() should return error when already connected")
	}
}

func TestSQLiteDB_InMemory(t *testing.T) {
	database := NewSQLiteDB(NewSQLiteConfig(":memory:"))
	if err := database.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer database.Close()

	// pool is pinned to one connection so the schema is visible to every query
	if _, err := database.DB().Exec("INSERT INTO users (id, profile_image) VALUES (?, ?)", "u1", "x"); err != nil {
		t.Fatalf("insert into migrated users table failed: %v", err)
	}
}

func TestSQLiteDB_Close(t *testing.T) {
	database := NewSQLiteDB(NewSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))

	if err := database.Close(); err != nil {
		t.Errorf("Close() without Connect() error = %v", err)
	}

	if err := database.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := database.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if database.DB() != nil {
		t.Error("DB() should return nil after Close()")
	}
}

func TestSQLiteDB_InterfaceCompliance(t *testing.T) {
	var database db.Database = NewSQLiteDB(NewSQLiteConfig(""))
	if database.Driver() != "sqlite" {
		t.Errorf("Driver() = %q, want sqlite", database.Driver())
	}
}
