package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/homeboard/internal/formatter"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/repositories"
	"github.com/desertthunder/homeboard/internal/shared"
)

// ContentHandler serves the locally stored recipes, meal plan, shopping list and display settings.
type ContentHandler struct {
	deps   Deps
	logger *log.Logger
}

func (h *ContentHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/api/recipes", h.listRecipes},
		{http.MethodPost, "/api/recipes", h.createRecipe},
		{http.MethodGet, "/api/recipes/{id}", h.getRecipe},
		{http.MethodPut, "/api/recipes/{id}", h.updateRecipe},
		{http.MethodDelete, "/api/recipes/{id}", h.deleteRecipe},
		{http.MethodGet, "/api/recipes/{id}/export", h.exportRecipe},

		{http.MethodGet, "/api/mealplan", h.listMealPlan},
		{http.MethodPost, "/api/mealplan", h.createMealPlanEntry},
		{http.MethodDelete, "/api/mealplan/{id}", h.deleteMealPlanEntry},
		{http.MethodGet, "/api/mealplan/export", h.exportMealPlan},

		{http.MethodGet, "/api/shopping-list", h.listShopping},
		{http.MethodPost, "/api/shopping-list", h.createShoppingItem},
		{http.MethodDelete, "/api/shopping-list", h.clearShopping},
		{http.MethodPatch, "/api/shopping-list/{id}", h.patchShoppingItem},
		{http.MethodDelete, "/api/shopping-list/{id}", h.deleteShoppingItem},
		{http.MethodGet, "/api/shopping-list/export", h.exportShopping},

		{http.MethodGet, "/api/system/config", h.systemConfig},
		{http.MethodPost, "/api/system/config", h.saveSystemConfig},
	}
}

func (h *ContentHandler) listRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.deps.Recipes.List(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *ContentHandler) createRecipe(w http.ResponseWriter, r *http.Request) {
	var recipe models.Recipe
	if err := decodeJSON(w, r, &recipe); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.deps.Recipes.Create(r.Context(), &recipe); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

func (h *ContentHandler) getRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.deps.Recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *ContentHandler) updateRecipe(w http.ResponseWriter, r *http.Request) {
	var recipe models.Recipe
	if err := decodeJSON(w, r, &recipe); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	recipe.ID = chi.URLParam(r, "id")

	if err := h.deps.Recipes.Update(r.Context(), &recipe); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *ContentHandler) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Recipes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

// listMealPlan returns every entry, or those between the optional from and to dates (inclusive).
func (h *ContentHandler) listMealPlan(w http.ResponseWriter, r *http.Request) {
	entries, err := h.mealPlan(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ContentHandler) mealPlan(r *http.Request) ([]*models.MealPlanEntry, error) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from != "" || to != "" {
		return h.deps.MealPlan.Range(r.Context(), from, to)
	}
	return h.deps.MealPlan.List(r.Context())
}

func (h *ContentHandler) createMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.MealPlanEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.deps.MealPlan.Create(r.Context(), &entry); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *ContentHandler) deleteMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.MealPlan.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (h *ContentHandler) listShopping(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Shopping.List(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) createShoppingItem(w http.ResponseWriter, r *http.Request) {
	var item models.ShoppingListItem
	if err := decodeJSON(w, r, &item); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.deps.Shopping.Create(r.Context(), &item); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// clearShopping removes every item, or only checked items with ?checked=true.
func (h *ContentHandler) clearShopping(w http.ResponseWriter, r *http.Request) {
	onlyChecked := false
	if v := r.URL.Query().Get("checked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(w, r, h.logger, fmt.Errorf("%w: checked must be a boolean", shared.ErrInvalidInput))
			return
		}
		onlyChecked = b
	}

	n, err := h.deps.Shopping.Clear(r.Context(), onlyChecked)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (h *ContentHandler) patchShoppingItem(w http.ResponseWriter, r *http.Request) {
	var patch repositories.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	item, err := h.deps.Shopping.Patch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) deleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Shopping.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (h *ContentHandler) systemConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.deps.Settings.SystemConfig(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *ContentHandler) saveSystemConfig(w http.ResponseWriter, r *http.Request) {
	cfg := models.DefaultSystemConfig()
	if err := decodeJSON(w, r, &cfg); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	saved, err := h.deps.Settings.SaveSystemConfig(r.Context(), cfg)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// export writes data rendered in the ?format= encoding (text by default).
func (h *ContentHandler) export(w http.ResponseWriter, r *http.Request, name string, render func(formatter.Format) ([]byte, error)) {
	format, err := formatter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	data, err := render(format)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.%s"`, name, format.Ext()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *ContentHandler) exportShopping(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Shopping.List(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.export(w, r, "shopping-list", func(f formatter.Format) ([]byte, error) {
		return formatter.ShoppingList(items, f)
	})
}

func (h *ContentHandler) exportMealPlan(w http.ResponseWriter, r *http.Request) {
	entries, err := h.mealPlan(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.export(w, r, "meal-plan", func(f formatter.Format) ([]byte, error) {
		return formatter.MealPlan(entries, f)
	})
}

func (h *ContentHandler) exportRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.deps.Recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.export(w, r, "recipe-"+recipe.ID, func(f formatter.Format) ([]byte, error) {
		return formatter.Recipe(recipe, f)
	})
}
