package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/storage"
)

// Store persists one [Token] per [Provider] in a [storage.Store].
type Store struct {
	kv     storage.Store
	now    func() time.Time
	logger *log.Logger
}

// NewStore creates a credential store. now defaults to [time.Now].
func NewStore(kv storage.Store, logger *log.Logger, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{kv: kv, now: now, logger: logger}
}

// Load returns the provider's token.
//
// A missing or unparseable token yields (nil, nil): the provider is simply not authenticated.
// Only backend failures are returned as errors.
func (s *Store) Load(ctx context.Context, p Provider) (*Token, error) {
	data, err := s.kv.Get(ctx, p.StorageKey())
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s token: %w", p, err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		s.logger.Warn("ignoring unreadable token", "provider", p, "error", err)
		return nil, nil
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, nil
	}
	return &tok, nil
}

// Save overwrites the provider's token, deriving ExpiresAt from ExpiresIn when needed.
func (s *Store) Save(ctx context.Context, p Provider, tok *Token) error {
	if tok == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidInput)
	}
	tok.normalize(s.now())

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s token: %w", p, err)
	}
	if err := s.kv.Set(ctx, p.StorageKey(), data); err != nil {
		return fmt.Errorf("failed to save %s token: %w", p, err)
	}
	return nil
}

// Delete removes the provider's token. Deleting an absent token succeeds.
func (s *Store) Delete(ctx context.Context, p Provider) error {
	if err := s.kv.Delete(ctx, p.StorageKey()); err != nil {
		return fmt.Errorf("failed to delete %s token: %w", p, err)
	}
	return nil
}
