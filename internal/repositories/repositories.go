package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/storage"
)

// collection is a JSON array of T stored under one key.
//
// A missing key reads as an empty collection. A corrupt value is an error so a bad
// write is never silently replaced by an empty list.
type collection[T models.Model] struct {
	mu   sync.Mutex
	kv   storage.Store
	key  string
	noun string
}

func newCollection[T models.Model](kv storage.Store, key, noun string) *collection[T] {
	return &collection[T]{kv: kv, key: key, noun: noun}
}

func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, shared.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	if err := c.kv.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	return nil
}

func (c *collection[T]) notFound(id string) error {
	return fmt.Errorf("%w: %s %s", shared.ErrNotFound, c.noun, id)
}

// List returns every record in stored order.
func (c *collection[T]) List(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Get returns the record with id or an error wrapping [shared.ErrNotFound].
func (c *collection[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.Key() == id {
			return item, nil
		}
	}
	return zero, c.notFound(id)
}

// Create assigns a new id, validates, and appends the record.
func (c *collection[T]) Create(ctx context.Context, model T) error {
	model.SetKey(shared.GenerateID())
	if err := model.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	return c.save(ctx, append(items, model))
}

// Update replaces the stored record that has the same id.
func (c *collection[T]) Update(ctx context.Context, model T) error {
	if err := model.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	for i, item := range items {
		if item.Key() == model.Key() {
			items[i] = model
			return c.save(ctx, items)
		}
	}
	return c.notFound(model.Key())
}

// Delete removes the record with id.
func (c *collection[T]) Delete(ctx context.Context, id string) error {
	n, err := c.deleteWhere(ctx, func(item T) bool { return item.Key() == id })
	if err != nil {
		return err
	}
	if n == 0 {
		return c.notFound(id)
	}
	return nil
}

// deleteWhere removes matching records and returns how many went.
func (c *collection[T]) deleteWhere(ctx context.Context, match func(T) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return 0, err
	}

	kept := make([]T, 0, len(items))
	for _, item := range items {
		if !match(item) {
			kept = append(kept, item)
		}
	}

	removed := len(items) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, c.save(ctx, kept)
}

// modify applies fn to the record with id and saves the collection.
func (c *collection[T]) modify(ctx context.Context, id string, fn func(T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.Key() != id {
			continue
		}
		if err := fn(item); err != nil {
			return zero, err
		}
		if err := item.Validate(); err != nil {
			return zero, fmt.Errorf("validation failed: %w", err)
		}
		return item, c.save(ctx, items)
	}
	return zero, c.notFound(id)
}
