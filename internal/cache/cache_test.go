package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func TestCache(t *testing.T) {
	t.Run("Set Then Get", func(t *testing.T) {
		c := New(newClock().Now)
		c.Set("k", "v", time.Minute)

		got, ok := c.Get("k")
		if !ok || got != "v" {
			t.Errorf("Get() = %v, %v; want v, true", got, ok)
		}
	})

	t.Run("Expires After TTL", func(t *testing.T) {
		clock := newClock()
		c := New(clock.Now)
		c.Set("k", 42, 10*time.Second)

		clock.Advance(9 * time.Second)
		if _, ok := c.Get("k"); !ok {
			t.Error("expected hit before ttl elapsed")
		}

		clock.Advance(time.Second)
		if _, ok := c.Get("k"); ok {
			t.Error("expected miss once ttl elapsed")
		}
		if c.Len() != 0 {
			t.Errorf("expected expired entry dropped on lookup, len = %d", c.Len())
		}
	})

	t.Run("Overwrite Resets TTL", func(t *testing.T) {
		clock := newClock()
		c := New(clock.Now)
		c.Set("k", 1, 10*time.Second)
		clock.Advance(8 * time.Second)
		c.Set("k", 2, 10*time.Second)
		clock.Advance(8 * time.Second)

		if got, ok := c.Get("k"); !ok || got != 2 {
			t.Errorf("Get() = %v, %v; want 2, true", got, ok)
		}
	})

	t.Run("Non Positive TTL", func(t *testing.T) {
		c := New(newClock().Now)
		c.Set("k", 1, time.Minute)
		c.Set("k", 1, 0)
		if _, ok := c.Get("k"); ok {
			t.Error("expected zero ttl to delete")
		}
	})

	t.Run("Delete And Prefix", func(t *testing.T) {
		c := New(newClock().Now)
		c.Set("events:a", 1, time.Minute)
		c.Set("events:b", 1, time.Minute)
		c.Set("ha:states", 1, time.Minute)

		c.Delete("ha:states", "absent")
		if _, ok := c.Get("ha:states"); ok {
			t.Error("expected ha:states deleted")
		}
		if n := c.DeletePrefix("events:"); n != 2 {
			t.Errorf("DeletePrefix() = %d, want 2", n)
		}
		if c.Len() != 0 {
			t.Errorf("expected empty cache, len = %d", c.Len())
		}
	})

	t.Run("Sweep", func(t *testing.T) {
		clock := newClock()
		c := New(clock.Now)
		c.Set("short", 1, time.Second)
		c.Set("long", 1, time.Hour)
		clock.Advance(time.Minute)

		if n := c.Sweep(); n != 1 {
			t.Errorf("Sweep() = %d, want 1", n)
		}
		if _, ok := c.Get("long"); !ok {
			t.Error("expected long entry kept")
		}
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Loads Once", func(t *testing.T) {
		clock := newClock()
		c := New(clock.Now)
		calls := 0
		load := func(context.Context) ([]string, error) {
			calls++
			return []string{"a", "b"}, nil
		}

		for range 3 {
			got, err := Fetch(ctx, c, "k", time.Minute, load)
			if err != nil || len(got) != 2 {
				t.Fatalf("Fetch() = %v, %v", got, err)
			}
		}
		if calls != 1 {
			t.Errorf("expected one load, got %d", calls)
		}

		clock.Advance(time.Minute)
		if _, err := Fetch(ctx, c, "k", time.Minute, load); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if calls != 2 {
			t.Errorf("expected reload after expiry, got %d loads", calls)
		}
	})

	t.Run("Errors Not Cached", func(t *testing.T) {
		c := New(newClock().Now)
		boom := errors.New("boom")
		_, err := Fetch(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
		if !errors.Is(err, boom) {
			t.Errorf("expected load error, got %v", err)
		}
		if _, ok := c.Get("k"); ok {
			t.Error("expected nothing cached after error")
		}
	})

	t.Run("Type Mismatch Is Miss", func(t *testing.T) {
		c := New(newClock().Now)
		c.Set("k", "string", time.Minute)
		got, err := Fetch(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
		if err != nil || got != 7 {
			t.Errorf("Fetch() = %v, %v; want 7", got, err)
		}
	})
}

func TestInvalidate(t *testing.T) {
	tc := []struct {
		name     string
		mutation Mutation
		dropped  []string
		kept     []string
	}{
		{
			name:     "HA config saved",
			mutation: HAConfigSaved,
			dropped:  []string{HAStatesKey, HAStatesSelectedKey("light.kitchen"), HAAreasKey, HAAreaEntitiesKey("kitchen")},
			kept:     []string{SpotifyPlayerKey, PhotosListKey},
		},
		{
			name:     "HA service called",
			mutation: HAServiceCalled,
			dropped:  []string{HAStatesKey, HAStatesSelectedKey("x")},
			kept:     []string{HAAreasKey},
		},
		{
			name:     "photos synced",
			mutation: PhotosSynced,
			dropped:  []string{PhotosListKey},
			kept:     []string{HAStatesKey},
		},
		{
			name:     "spotify control",
			mutation: SpotifyControl,
			dropped:  []string{SpotifyPlayerKey, SpotifyDevicesKey},
			kept:     []string{MealiePlanKey},
		},
		{
			name:     "google logout",
			mutation: GoogleLogout,
			dropped: []string{
				EventsKey(time.Unix(0, 0), time.Unix(3600, 0), []string{"primary"}),
				CalendarsKey,
				PhotosListKey,
			},
			kept: []string{SpotifyPlayerKey},
		},
		{
			name:     "spotify logout",
			mutation: LogoutMutation("spotify"),
			dropped:  []string{SpotifyPlayerKey, SpotifyDevicesKey},
			kept:     []string{CalendarsKey},
		},
		{
			name:     "unknown",
			mutation: Mutation("nope"),
			kept:     []string{HAStatesKey, PhotosListKey},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			c := New(newClock().Now)
			for _, k := range append(append([]string{}, tt.dropped...), tt.kept...) {
				c.Set(k, true, time.Hour)
			}

			c.Invalidate(tt.mutation)

			for _, k := range tt.dropped {
				if _, ok := c.Get(k); ok {
					t.Errorf("expected %s invalidated", k)
				}
			}
			for _, k := range tt.kept {
				if _, ok := c.Get(k); !ok {
					t.Errorf("expected %s kept", k)
				}
			}
		})
	}
}

func TestEventsKey(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := EventsKey(start, start.Add(24*time.Hour), []string{"primary"})
	b := EventsKey(start, start.Add(48*time.Hour), []string{"primary"})
	c := EventsKey(start, start.Add(24*time.Hour), []string{"primary", "family"})

	if a == b || a == c || b == c {
		t.Errorf("expected distinct keys, got %s %s %s", a, b, c)
	}
	if a != EventsKey(start, start.Add(24*time.Hour), []string{"primary"}) {
		t.Error("expected deterministic key")
	}
}
