package repositories

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/storage"
)

// RecipeRepository implements models.Repository[*models.Recipe].
type RecipeRepository struct {
	*collection[*models.Recipe]
	now func() time.Time
}

// NewRecipeRepository creates a RecipeRepository. now defaults to [time.Now].
func NewRecipeRepository(kv storage.Store, now func() time.Time) *RecipeRepository {
	if now == nil {
		now = time.Now
	}
	return &RecipeRepository{collection: newCollection[*models.Recipe](kv, storage.KeyRecipes, "recipe"), now: now}
}

// Create stores a new recipe with generated id and timestamps.
func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	now := r.now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	return r.collection.Create(ctx, recipe)
}

// Update replaces a recipe, keeping its original creation time.
func (r *RecipeRepository) Update(ctx context.Context, recipe *models.Recipe) error {
	updated, err := r.modify(ctx, recipe.ID, func(stored *models.Recipe) error {
		createdAt := stored.CreatedAt
		*stored = *recipe
		stored.CreatedAt = createdAt
		stored.UpdatedAt = r.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	*recipe = *updated
	return nil
}

// Names maps recipe ids to names.
func (r *RecipeRepository) Names(ctx context.Context) (map[string]string, error) {
	recipes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(recipes))
	for _, rc := range recipes {
		names[rc.ID] = rc.Name
	}
	return names, nil
}

// MealPlanRepository implements models.Repository[*models.MealPlanEntry].
//
// Entries returned by List carry the referenced recipe's name.
type MealPlanRepository struct {
	*collection[*models.MealPlanEntry]
	recipes *RecipeRepository
}

func NewMealPlanRepository(kv storage.Store, recipes *RecipeRepository) *MealPlanRepository {
	return &MealPlanRepository{
		collection: newCollection[*models.MealPlanEntry](kv, storage.KeyMealPlan, "meal plan entry"),
		recipes:    recipes,
	}
}

// List returns entries sorted by date then meal type, with RecipeName filled in.
// Entries pointing at a deleted recipe are named [models.UnknownRecipe].
func (m *MealPlanRepository) List(ctx context.Context) ([]*models.MealPlanEntry, error) {
	entries, err := m.collection.List(ctx)
	if err != nil {
		return nil, err
	}
	names, err := m.recipes.Names(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if name, ok := names[e.RecipeID]; ok {
			e.RecipeName = name
		} else {
			e.RecipeName = models.UnknownRecipe
		}
	}

	slices.SortStableFunc(entries, func(a, b *models.MealPlanEntry) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(mealOrder(a.MealType), mealOrder(b.MealType)))
	})
	return entries, nil
}

// Range returns entries with from <= date <= to (YYYY-MM-DD, inclusive).
func (m *MealPlanRepository) Range(ctx context.Context, from, to string) ([]*models.MealPlanEntry, error) {
	entries, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(entries, func(e *models.MealPlanEntry) bool {
		return (from != "" && e.Date < from) || (to != "" && e.Date > to)
	}), nil
}

// Create stores an entry. RecipeName is derived and never persisted.
func (m *MealPlanRepository) Create(ctx context.Context, entry *models.MealPlanEntry) error {
	entry.RecipeName = ""
	return m.collection.Create(ctx, entry)
}

func mealOrder(t models.MealType) int {
	switch t {
	case models.Breakfast:
		return 0
	case models.Lunch:
		return 1
	case models.Dinner:
		return 2
	default:
		return 3
	}
}

// ShoppingListRepository implements models.Repository[*models.ShoppingListItem].
type ShoppingListRepository struct {
	*collection[*models.ShoppingListItem]
	now func() time.Time
}

func NewShoppingListRepository(kv storage.Store, now func() time.Time) *ShoppingListRepository {
	if now == nil {
		now = time.Now
	}
	return &ShoppingListRepository{
		collection: newCollection[*models.ShoppingListItem](kv, storage.KeyShoppingList, "shopping list item"),
		now:        now,
	}
}

func (s *ShoppingListRepository) Create(ctx context.Context, item *models.ShoppingListItem) error {
	item.CreatedAt = s.now().UTC()
	return s.collection.Create(ctx, item)
}

// ItemPatch holds optional shopping list item changes.
type ItemPatch struct {
	Name     *string `json:"name"`
	Quantity *string `json:"quantity"`
	Checked  *bool   `json:"checked"`
}

// Patch applies the non-nil fields of p to the item with id.
func (s *ShoppingListRepository) Patch(ctx context.Context, id string, p ItemPatch) (*models.ShoppingListItem, error) {
	return s.modify(ctx, id, func(item *models.ShoppingListItem) error {
		if p.Name != nil {
			item.Name = *p.Name
		}
		if p.Quantity != nil {
			item.Quantity = *p.Quantity
		}
		if p.Checked != nil {
			item.Checked = *p.Checked
		}
		return nil
	})
}

// Clear removes checked items, or every item when onlyChecked is false.
func (s *ShoppingListRepository) Clear(ctx context.Context, onlyChecked bool) (int, error) {
	return s.deleteWhere(ctx, func(item *models.ShoppingListItem) bool {
		return !onlyChecked || item.Checked
	})
}

var (
	_ models.Repository[*models.Recipe]           = (*RecipeRepository)(nil)
	_ models.Repository[*models.MealPlanEntry]    = (*MealPlanRepository)(nil)
	_ models.Repository[*models.ShoppingListItem] = (*ShoppingListRepository)(nil)
)
