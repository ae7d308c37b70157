package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/storage"
)

// SettingsRepository stores single-document settings: [models.SystemConfig] and [models.HAConfig].
//
// Saving settings invalidates the cache keys derived from them.
type SettingsRepository struct {
	mu     sync.Mutex
	kv     storage.Store
	cache  *cache.Cache
	logger *log.Logger
}

func NewSettingsRepository(kv storage.Store, c *cache.Cache, logger *log.Logger) *SettingsRepository {
	if c == nil {
		c = cache.New(nil)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SettingsRepository{kv: kv, cache: c, logger: logger}
}

// readDoc decodes key into v. It reports false when the key is absent or unreadable.
func (s *SettingsRepository) readDoc(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("ignoring unreadable settings", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *SettingsRepository) writeDoc(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// SystemConfig returns the saved display settings, or defaults when none are saved.
func (s *SettingsRepository) SystemConfig(ctx context.Context) (models.SystemConfig, error) {
	return cache.Fetch(ctx, s.cache, cache.SystemConfigKey, cache.SystemConfigTTL, func(ctx context.Context) (models.SystemConfig, error) {
		cfg := models.DefaultSystemConfig()
		ok, err := s.readDoc(ctx, storage.KeySystemConfig, &cfg)
		if err != nil {
			return cfg, err
		}
		if ok {
			if err := cfg.Validate(); err != nil {
				s.logger.Warn("stored system config is invalid, using defaults", "error", err)
				return models.DefaultSystemConfig(), nil
			}
		}
		return cfg, nil
	})
}

// SaveSystemConfig validates and stores cfg.
func (s *SettingsRepository) SaveSystemConfig(ctx context.Context, cfg models.SystemConfig) (models.SystemConfig, error) {
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeDoc(ctx, storage.KeySystemConfig, cfg); err != nil {
		return cfg, err
	}
	s.cache.Invalidate(cache.SystemConfigSaved)
	return cfg, nil
}

// HAConfig returns the entity selection. No saved selection means "show everything".
func (s *SettingsRepository) HAConfig(ctx context.Context) (models.HAConfig, error) {
	var cfg models.HAConfig
	if _, err := s.readDoc(ctx, storage.KeyHAConfig, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("stored ha-config is invalid, ignoring selection", "error", err)
		cfg = models.HAConfig{}
		_ = cfg.Validate()
	}
	return cfg, nil
}

// SaveHAConfig validates and stores cfg, then drops cached Home Assistant states and areas.
func (s *SettingsRepository) SaveHAConfig(ctx context.Context, cfg models.HAConfig) (models.HAConfig, error) {
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeDoc(ctx, storage.KeyHAConfig, cfg); err != nil {
		return cfg, err
	}
	s.cache.Invalidate(cache.HAConfigSaved)
	s.logger.Info("saved ha-config", "entities", len(cfg.SelectedEntities))
	return cfg, nil
}
