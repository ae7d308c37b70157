// Package repositories persists homeboard's local content in a [storage.Store].
//
// Each collection is stored as one JSON array under its logical key, and every write
// rewrites the whole array. A mutex serializes each repository's read-modify-write so
// concurrent requests in one process cannot drop each other's changes.
//
// Key Implementations:
//   - [RecipeRepository] : recipes under "recipes"
//   - [MealPlanRepository] : meal plan entries under "mealplan", joined to recipe names
//   - [ShoppingListRepository] : shopping list items under "shopping-list"
//   - [SettingsRepository] : system config and Home Assistant entity selection
//
// Settings writes invalidate dependent response cache keys through [cache.Cache.Invalidate].
package repositories
