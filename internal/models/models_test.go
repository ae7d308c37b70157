package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/homeboard/internal/shared"
)

func TestSystemConfigValidate(t *testing.T) {
	tc := []struct {
		name    string
		cfg     SystemConfig
		wantErr bool
	}{
		{"defaults", DefaultSystemConfig(), false},
		{"portrait", SystemConfig{SleepStartTime: "23:30", SleepEndTime: "06:15", Orientation: Portrait}, false},
		{"empty orientation", SystemConfig{SleepStartTime: "23:30", SleepEndTime: "06:15"}, false},
		{"bad hour", SystemConfig{SleepStartTime: "24:00", SleepEndTime: "06:00", Orientation: Landscape}, true},
		{"missing colon", SystemConfig{SleepStartTime: "2200", SleepEndTime: "06:00", Orientation: Landscape}, true},
		{"single digit", SystemConfig{SleepStartTime: "7:00", SleepEndTime: "06:00", Orientation: Landscape}, true},
		{"bad orientation", SystemConfig{SleepStartTime: "22:00", SleepEndTime: "06:00", Orientation: "diagonal"}, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.cfg.Orientation == "" {
				t.Error("expected orientation defaulted")
			}
		})
	}
}

func TestSystemConfigAsleep(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 3, 1, h, m, 0, 0, time.UTC) }

	wrapping := SystemConfig{SleepScheduleEnabled: true, SleepStartTime: "22:00", SleepEndTime: "07:00"}
	daytime := SystemConfig{SleepScheduleEnabled: true, SleepStartTime: "13:00", SleepEndTime: "15:00"}

	tc := []struct {
		name string
		cfg  SystemConfig
		t    time.Time
		want bool
	}{
		{"late night", wrapping, at(23, 0), true},
		{"early morning", wrapping, at(6, 59), true},
		{"end boundary", wrapping, at(7, 0), false},
		{"afternoon", wrapping, at(15, 0), false},
		{"nap", daytime, at(14, 0), true},
		{"after nap", daytime, at(15, 30), false},
		{"disabled", SystemConfig{SleepStartTime: "00:00", SleepEndTime: "23:59"}, at(12, 0), false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Asleep(tt.t); got != tt.want {
				t.Errorf("Asleep() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHAConfigValidate(t *testing.T) {
	t.Run("Dedupes And Trims", func(t *testing.T) {
		cfg := HAConfig{SelectedEntities: []string{"light.kitchen", " light.kitchen ", "", "switch.fan"}}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(cfg.SelectedEntities) != 2 || cfg.SelectedEntities[1] != "switch.fan" {
			t.Errorf("unexpected selection %v", cfg.SelectedEntities)
		}
		if cfg.EntityNames == nil {
			t.Error("expected entityNames initialised")
		}
	})

	t.Run("Rejects Bad Id", func(t *testing.T) {
		cfg := HAConfig{SelectedEntities: []string{"kitchen"}}
		if err := cfg.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("DisplayName", func(t *testing.T) {
		cfg := HAConfig{EntityNames: map[string]string{"light.kitchen": "Kitchen", "switch.fan": "  "}}
		if got := cfg.DisplayName("light.kitchen", "Kitchen Light"); got != "Kitchen" {
			t.Errorf("DisplayName() = %s", got)
		}
		if got := cfg.DisplayName("switch.fan", "Fan"); got != "Fan" {
			t.Errorf("expected fallback for blank name, got %s", got)
		}
	})
}

func TestMealPlanEntryValidate(t *testing.T) {
	tc := []struct {
		name    string
		entry   MealPlanEntry
		wantErr bool
	}{
		{"valid", MealPlanEntry{Date: "2026-03-01", MealType: Lunch, RecipeID: "r1"}, false},
		{"default meal type", MealPlanEntry{Date: "2026-03-01", RecipeID: "r1"}, false},
		{"bad date", MealPlanEntry{Date: "03/01/2026", MealType: Lunch, RecipeID: "r1"}, true},
		{"bad meal type", MealPlanEntry{Date: "2026-03-01", MealType: "brunch", RecipeID: "r1"}, true},
		{"missing recipe", MealPlanEntry{Date: "2026-03-01", MealType: Dinner}, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecipeValidate(t *testing.T) {
	r := Recipe{Name: "Pancakes"}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if r.Ingredients == nil || r.Instructions == nil {
		t.Error("expected empty slices, not nil")
	}

	if err := (&Recipe{Name: "  "}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank name, got %v", err)
	}
}

func TestCalendarEventStartTime(t *testing.T) {
	timed := CalendarEvent{Start: "2026-03-01T09:00:00-05:00"}
	allDay := CalendarEvent{Start: "2026-03-01"}

	if timed.StartTime().IsZero() || allDay.StartTime().IsZero() {
		t.Error("expected both formats to parse")
	}
	if !allDay.StartTime().Before(timed.StartTime()) {
		t.Error("expected all-day start at midnight UTC to sort before 9am EST")
	}
}
