package models

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/homeboard/internal/shared"
)

// UnknownRecipe is shown for meal plan entries whose recipe no longer exists.
const UnknownRecipe = "Unknown Recipe"

// Model is a locally stored record with a generated id.
type Model interface {
	Key() string     // Key returns the record id
	SetKey(string)   // SetKey assigns a generated id before create
	Validate() error // Validate checks required fields
}

// Repository defines CRUD over one collection of records.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error
	Get(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, model T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]T, error)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Recipe is a household recipe.
type Recipe struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	PrepTime     string    `json:"prepTime,omitempty"`
	CookTime     string    `json:"cookTime,omitempty"`
	Servings     int       `json:"servings,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r *Recipe) Key() string      { return r.ID }
func (r *Recipe) SetKey(id string) { r.ID = id }

func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("recipe name is required")
	}
	if r.Servings < 0 {
		return invalid("servings must not be negative")
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	return nil
}

// MealType is the slot a planned meal fills.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

func (m MealType) valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// DateLayout is the YYYY-MM-DD format used by meal plan dates.
const DateLayout = "2006-01-02"

// MealPlanEntry assigns a recipe to a date. RecipeName is filled when listing.
type MealPlanEntry struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	MealType   MealType `json:"mealType"`
	RecipeID   string   `json:"recipeId"`
	Notes      string   `json:"notes,omitempty"`
	RecipeName string   `json:"recipeName,omitempty"`
}

func (m *MealPlanEntry) Key() string      { return m.ID }
func (m *MealPlanEntry) SetKey(id string) { m.ID = id }

func (m *MealPlanEntry) Validate() error {
	if _, err := time.Parse(DateLayout, m.Date); err != nil {
		return invalid("date must be YYYY-MM-DD, got %q", m.Date)
	}
	if m.MealType == "" {
		m.MealType = Dinner
	}
	if !m.MealType.valid() {
		return invalid("unknown meal type %q", m.MealType)
	}
	if m.RecipeID == "" {
		return invalid("recipeId is required")
	}
	return nil
}

// ShoppingListItem is one line on the shopping list.
type ShoppingListItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity,omitempty"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *ShoppingListItem) Key() string      { return s.ID }
func (s *ShoppingListItem) SetKey(id string) { s.ID = id }

func (s *ShoppingListItem) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return invalid("item name is required")
	}
	return nil
}

// Orientation of the display.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// SystemConfig holds display settings.
type SystemConfig struct {
	SleepScheduleEnabled bool        `json:"sleepScheduleEnabled"`
	SleepStartTime       string      `json:"sleepStartTime"`
	SleepEndTime         string      `json:"sleepEndTime"`
	Orientation          Orientation `json:"orientation"`
}

// DefaultSystemConfig is served before any settings are saved.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		SleepScheduleEnabled: false,
		SleepStartTime:       "22:00",
		SleepEndTime:         "07:00",
		Orientation:          Landscape,
	}
}

func (c *SystemConfig) Validate() error {
	if !clockPattern.MatchString(c.SleepStartTime) {
		return invalid("sleepStartTime must be HH:MM, got %q", c.SleepStartTime)
	}
	if !clockPattern.MatchString(c.SleepEndTime) {
		return invalid("sleepEndTime must be HH:MM, got %q", c.SleepEndTime)
	}
	switch c.Orientation {
	case Landscape, Portrait:
	case "":
		c.Orientation = Landscape
	default:
		return invalid("orientation must be landscape or portrait, got %q", c.Orientation)
	}
	return nil
}

// Asleep reports whether t falls inside the sleep window. Windows may wrap midnight.
func (c SystemConfig) Asleep(t time.Time) bool {
	if !c.SleepScheduleEnabled {
		return false
	}
	start, okStart := minutes(c.SleepStartTime)
	end, okEnd := minutes(c.SleepEndTime)
	if !okStart || !okEnd || start == end {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	if start < end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

func minutes(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// HAConfig selects and renames Home Assistant entities shown on the dashboard.
type HAConfig struct {
	SelectedEntities []string          `json:"selectedEntities"`
	EntityNames      map[string]string `json:"entityNames"`
}

func (c *HAConfig) Validate() error {
	if c.SelectedEntities == nil {
		c.SelectedEntities = []string{}
	}
	if c.EntityNames == nil {
		c.EntityNames = map[string]string{}
	}

	seen := make(map[string]bool, len(c.SelectedEntities))
	out := c.SelectedEntities[:0]
	for _, id := range c.SelectedEntities {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if !strings.Contains(id, ".") {
			return invalid("entity id %q must be domain.object_id", id)
		}
		seen[id] = true
		out = append(out, id)
	}
	c.SelectedEntities = out
	return nil
}

// Selection is a stable fingerprint of the selected entities used in cache keys.
func (c HAConfig) Selection() string {
	return strings.Join(c.SelectedEntities, ",")
}

// DisplayName returns the configured name for an entity, or fallback.
func (c HAConfig) DisplayName(entityID, fallback string) string {
	if name := strings.TrimSpace(c.EntityNames[entityID]); name != "" {
		return name
	}
	return fallback
}
