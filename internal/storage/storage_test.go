package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/homeboard/internal/shared"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get Missing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Set And Get", func(t *testing.T) {
		if err := s.Set(ctx, KeyRecipes, []byte(`[{"id":"1"}]`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := s.Get(ctx, KeyRecipes)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `[{"id":"1"}]` {
			t.Errorf("Get() = %s", got)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.Set(ctx, KeyRecipes, []byte(`[]`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, _ := s.Get(ctx, KeyRecipes)
		if string(got) != `[]` {
			t.Errorf("expected overwritten value, got %s", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, KeyRecipes); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, KeyRecipes); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("Delete Absent", func(t *testing.T) {
		if err := s.Delete(ctx, "never-written"); err != nil {
			t.Errorf("deleting an absent key should succeed, got %v", err)
		}
	})
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	exerciseStore(t, s)

	t.Run("File Layout", func(t *testing.T) {
		if err := s.Set(context.Background(), KeyGoogleToken, []byte(`{}`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "google-token.json")); err != nil {
			t.Errorf("expected google-token.json to exist: %v", err)
		}

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".tmp" {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("Rejects Path Keys", func(t *testing.T) {
		err := s.Set(context.Background(), "../escape", []byte(`{}`))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Requires Dir", func(t *testing.T) {
		if _, err := NewFileStore(" "); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("HOMEBOARD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HOMEBOARD_TEST_REDIS_ADDR not set")
	}

	s, err := OpenRedisStore(context.Background(), addr, 0, "homeboard-test:")
	if err != nil {
		t.Fatalf("OpenRedisStore() error = %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Default File", func(t *testing.T) {
		s, closeFn, err := Open(ctx, Options{DataDir: t.TempDir()})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer closeFn()
		if _, ok := s.(*FileStore); !ok {
			t.Errorf("expected *FileStore, got %T", s)
		}
	})

	t.Run("SQLite", func(t *testing.T) {
		s, closeFn, err := Open(ctx, Options{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "hb.db")})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer closeFn()
		if _, ok := s.(*SQLiteStore); !ok {
			t.Errorf("expected *SQLiteStore, got %T", s)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, err := Open(ctx, Options{Backend: "etcd"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
