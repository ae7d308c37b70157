// Package storage defines a small key-value [Store] used for everything homeboard persists:
// OAuth tokens, settings, local content, and photo picker state.
//
// Values are opaque bytes (JSON in practice) and writes are whole-value overwrites,
// so a reader sees either the old or the new value, never a partial mutation.
//
// Three backends are provided:
//   - [FileStore]: one <key>.json file per key in a data directory (default)
//   - [SQLiteStore]: rows in a sqlite "kv" table
//   - [RedisStore]: namespaced redis string keys
package storage

import (
	"context"
	"fmt"

	"github.com/desertthunder/homeboard/internal/shared"
)

// Logical keys. With the file backend each maps to <key>.json in the data directory.
const (
	KeyGoogleToken   = "google-token"
	KeySpotifyToken  = "spotify-token"
	KeyHAConfig      = "ha-config"
	KeySystemConfig  = "system_config"
	KeyRecipes       = "recipes"
	KeyMealPlan      = "mealplan"
	KeyShoppingList  = "shopping-list"
	KeyPickerSession = "picker-session"
	KeyPickerMedia   = "picker-media"
	KeyPickerSync    = "picker-sync"
)

// Store is a key-value persistence backend.
type Store interface {
	// Get returns the value for key or an error wrapping [shared.ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Options selects and configures a backend for [Open].
type Options struct {
	Backend     string
	DataDir     string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	RedisPrefix string
}

// Open builds the backend named by opts.Backend. An empty backend means "file".
//
// The returned close function releases backend resources and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	switch opts.Backend {
	case "", "file":
		s, err := NewFileStore(opts.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case "sqlite":
		s, err := OpenSQLiteStore(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		s, err := OpenRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, opts.Backend)
	}
}

func notFound(key string) error {
	return fmt.Errorf("%w: key %s", shared.ErrNotFound, key)
}
