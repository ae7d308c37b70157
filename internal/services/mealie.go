// Mealie REST API client
//
// API reference: https://docs.mealie.io/documentation/getting-started/api-usage/
package services

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

type mealieIngredient struct {
	Display string `json:"display"`
	Note    string `json:"note"`
}

type mealieInstruction struct {
	Text string `json:"text"`
}

type mealieRecipe struct {
	ID                 string              `json:"id"`
	Slug               string              `json:"slug"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Image              any                 `json:"image"`
	TotalTime          string              `json:"totalTime"`
	RecipeYield        string              `json:"recipeYield"`
	RecipeIngredient   []mealieIngredient  `json:"recipeIngredient"`
	RecipeInstructions []mealieInstruction `json:"recipeInstructions"`
}

type mealieMealPlanItem struct {
	ID        any           `json:"id"`
	Date      string        `json:"date"`
	EntryType string        `json:"entryType"`
	Title     string        `json:"title"`
	Recipe    *mealieRecipe `json:"recipe"`
}

// mealiePlanDays is the older meal plan shape: days each holding meals.
type mealiePlanDays struct {
	PlanDays []struct {
		Date  string `json:"date"`
		Meals []struct {
			Name        string `json:"name"`
			Slug        string `json:"slug"`
			Description string `json:"description"`
		} `json:"meals"`
	} `json:"planDays"`
}

// MealieService reads recipes and the current meal plan from Mealie.
// Unconfigured instances return empty results.
type MealieService struct {
	client     *Client
	baseURL    string
	token      string
	cache      *cache.Cache
	configured bool
	logger     *log.Logger
}

// MealieOpts contains dependencies for [NewMealieService].
type MealieOpts struct {
	Config  shared.MealieConfig
	Cache   *cache.Cache
	Client  *Client
	Timeout time.Duration
	Logger  *log.Logger
}

func NewMealieService(opts MealieOpts) *MealieService {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewClient(ClientOpts{
			Name:      "mealie",
			BaseURL:   opts.Config.BaseURL,
			RateLimit: 5,
			Burst:     5,
			Logger:    opts.Logger,
			Timeout:   opts.Timeout,
		})
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil)
	}

	return &MealieService{
		client:     opts.Client,
		baseURL:    strings.TrimRight(opts.Config.BaseURL, "/"),
		token:      opts.Config.Token,
		cache:      opts.Cache,
		configured: opts.Config.Configured(),
		logger:     opts.Logger.With("component", "mealie"),
	}
}

func (m *MealieService) Name() string     { return "Mealie" }
func (m *MealieService) Configured() bool { return m.configured }

// raw fetches path and returns the undecoded body so callers can accept more than one shape.
func (m *MealieService) raw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := m.client.send(ctx, request{path: path, query: query, bearer: m.token})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: mealie: failed to read response: %v", shared.ErrUpstreamUnavailable, err)
	}
	return data, nil
}

// CurrentMealPlan returns the current meal plan entries.
func (m *MealieService) CurrentMealPlan(ctx context.Context) ([]models.MealieMealPlanEntry, error) {
	if !m.configured {
		return []models.MealieMealPlanEntry{}, nil
	}

	return cache.Fetch(ctx, m.cache, cache.MealiePlanKey, cache.MealieTTL, func(ctx context.Context) ([]models.MealieMealPlanEntry, error) {
		data, err := m.raw(ctx, "/api/meal-plans/current", nil)
		if err != nil {
			return nil, err
		}
		return m.parseMealPlan(data)
	})
}

func (m *MealieService) parseMealPlan(data []byte) ([]models.MealieMealPlanEntry, error) {
	data = bytes.TrimSpace(data)
	entries := []models.MealieMealPlanEntry{}

	var items []mealieMealPlanItem
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return entries, nil
	case data[0] == '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: mealie: bad meal plan: %v", shared.ErrUpstreamUnavailable, err)
		}
	default:
		var obj struct {
			Items []mealieMealPlanItem `json:"items"`
			mealiePlanDays
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("%w: mealie: bad meal plan: %v", shared.ErrUpstreamUnavailable, err)
		}
		items = obj.Items
		for _, day := range obj.PlanDays {
			for _, meal := range day.Meals {
				entries = append(entries, models.MealieMealPlanEntry{
					ID:        meal.Slug,
					Date:      day.Date,
					EntryType: "dinner",
					Title:     meal.Name,
					Recipe:    &models.MealieRecipe{Slug: meal.Slug, Name: meal.Name, Description: meal.Description},
				})
			}
		}
	}

	for _, item := range items {
		entry := models.MealieMealPlanEntry{
			ID:        idString(item.ID),
			Date:      item.Date,
			EntryType: item.EntryType,
			Title:     item.Title,
		}
		if item.Recipe != nil {
			r := m.toRecipe(*item.Recipe)
			entry.Recipe = &r
			if entry.Title == "" {
				entry.Title = r.Name
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Recipes lists recipe summaries.
func (m *MealieService) Recipes(ctx context.Context) ([]models.MealieRecipe, error) {
	if !m.configured {
		return []models.MealieRecipe{}, nil
	}

	return cache.Fetch(ctx, m.cache, cache.MealieRecipesKey, cache.MealieTTL, func(ctx context.Context) ([]models.MealieRecipe, error) {
		data, err := m.raw(ctx, "/api/recipes", url.Values{"perPage": {"100"}, "orderBy": {"name"}})
		if err != nil {
			return nil, err
		}

		data = bytes.TrimSpace(data)
		var list []mealieRecipe
		if len(data) > 0 && data[0] == '[' {
			err = json.Unmarshal(data, &list)
		} else {
			var page struct {
				Items []mealieRecipe `json:"items"`
			}
			err = json.Unmarshal(data, &page)
			list = page.Items
		}
		if err != nil {
			return nil, fmt.Errorf("%w: mealie: bad recipe list: %v", shared.ErrUpstreamUnavailable, err)
		}

		recipes := make([]models.MealieRecipe, 0, len(list))
		for _, r := range list {
			recipes = append(recipes, m.toRecipe(r))
		}
		return recipes, nil
	})
}

// Recipe returns one recipe by id or slug.
func (m *MealieService) Recipe(ctx context.Context, id string) (*models.MealieRecipe, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: recipe id is required", shared.ErrInvalidInput)
	}
	if !m.configured {
		return nil, fmt.Errorf("%w: mealie recipe %s", shared.ErrNotFound, id)
	}

	return cache.Fetch(ctx, m.cache, cache.MealieRecipeKey(id), cache.MealieTTL, func(ctx context.Context) (*models.MealieRecipe, error) {
		var r mealieRecipe
		if err := m.client.do(ctx, request{path: "/api/recipes/" + url.PathEscape(id), bearer: m.token}, &r); err != nil {
			return nil, err
		}
		out := m.toRecipe(r)
		return &out, nil
	})
}

func (m *MealieService) toRecipe(r mealieRecipe) models.MealieRecipe {
	out := models.MealieRecipe{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		TotalTime:   r.TotalTime,
		Servings:    r.RecipeYield,
	}
	if r.Image != nil && r.ID != "" {
		out.Image = fmt.Sprintf("%s/api/media/recipes/%s/images/original.webp", m.baseURL, r.ID)
	}
	for _, ing := range r.RecipeIngredient {
		if text := strings.TrimSpace(cmp.Or(ing.Display, ing.Note)); text != "" {
			out.Ingredients = append(out.Ingredients, text)
		}
	}
	for _, step := range r.RecipeInstructions {
		if text := strings.TrimSpace(step.Text); text != "" {
			out.Steps = append(out.Steps, text)
		}
	}
	return out
}

// idString renders a Mealie id, which is numeric in some versions and a UUID in others.
func idString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
