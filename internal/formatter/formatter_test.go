package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
	th "github.com/desertthunder/homeboard/internal/testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", CSV},
		{"MD", Markdown},
		{"markdown", Markdown},
		{"text", Text},
		{"", Text},
		{" json ", JSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestShoppingList(t *testing.T) {
	items := []*models.ShoppingListItem{
		{Name: "Eggs", Quantity: "12", Checked: true},
		{Name: "Milk, whole"},
	}

	t.Run("CSV", func(t *testing.T) {
		data, err := ShoppingList(items, CSV)
		if err != nil {
			t.Fatalf("ShoppingList failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "Name,Quantity,Checked\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Milk, whole",,false`) {
			t.Errorf("CSV should quote names with commas, got: %s", output)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := ShoppingList(items, Markdown)
		if err != nil {
			t.Fatalf("ShoppingList failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "# Shopping List") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		milk := strings.Index(output, "- [ ] Milk, whole")
		eggs := strings.Index(output, "- [x] Eggs (12)")
		if milk < 0 || eggs < 0 || milk > eggs {
			t.Errorf("expected unchecked items before checked ones, got:\n%s", output)
		}
	})

	t.Run("Empty Text", func(t *testing.T) {
		data, err := ShoppingList(nil, Text)
		if err != nil {
			t.Fatalf("ShoppingList failed: %v", err)
		}
		if !strings.Contains(string(data), "Nothing to buy.") {
			t.Errorf("unexpected empty list output: %s", data)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := ShoppingList(items, JSON)
		if err != nil {
			t.Fatalf("ShoppingList failed: %v", err)
		}
		var decoded []models.ShoppingListItem
		if err := json.Unmarshal(data, &decoded); err != nil || len(decoded) != 2 {
			t.Errorf("expected 2 decoded items, got %v, %v", decoded, err)
		}
	})
}

func TestMealPlan(t *testing.T) {
	entries := []*models.MealPlanEntry{
		{Date: "2026-03-02", MealType: models.Breakfast, RecipeName: "Oatmeal"},
		{Date: "2026-03-02", MealType: models.Dinner, RecipeName: "Tacos", Notes: "double batch"},
		{Date: "2026-03-03", MealType: models.Dinner},
	}

	t.Run("Markdown Groups By Date", func(t *testing.T) {
		data, err := MealPlan(entries, Markdown)
		if err != nil {
			t.Fatalf("MealPlan failed: %v", err)
		}
		output := string(data)
		if strings.Count(output, "## 2026-03-02") != 1 || !strings.Contains(output, "## 2026-03-03") {
			t.Errorf("expected one heading per date, got:\n%s", output)
		}
		if !strings.Contains(output, "- **dinner: Tacos (double batch)**") {
			t.Errorf("missing dinner line, got:\n%s", output)
		}
		if !strings.Contains(output, models.UnknownRecipe) {
			t.Errorf("expected unknown recipe placeholder, got:\n%s", output)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		data, err := MealPlan(entries, CSV)
		if err != nil {
			t.Fatalf("MealPlan failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "Date,Meal,Recipe,Notes\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "2026-03-02,breakfast,Oatmeal,") {
			t.Errorf("CSV missing breakfast row, got: %s", output)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		data, err := MealPlan(nil, Text)
		if err != nil || !strings.Contains(string(data), "Nothing planned.") {
			t.Errorf("unexpected empty plan output: %s, %v", data, err)
		}
	})
}

func TestRecipe(t *testing.T) {
	recipe := &models.Recipe{
		Name:         "Pancakes",
		Description:  "Fluffy.",
		Ingredients:  []string{"2 cups flour", "2 eggs"},
		Instructions: []string{"Mix", "Cook"},
		Servings:     4,
		PrepTime:     "10m",
		SourceURL:    "https://example.com/pancakes",
	}

	t.Run("Markdown", func(t *testing.T) {
		data, err := Recipe(recipe, Markdown)
		if err != nil {
			t.Fatalf("Recipe failed: %v", err)
		}
		output := string(data)
		for _, want := range []string{
			"# Pancakes",
			"Serves 4 | Prep 10m",
			"## Ingredients\n\n- 2 cups flour\n- 2 eggs",
			"1. Mix\n2. Cook",
			"[Source](https://example.com/pancakes)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := Recipe(recipe, Text)
		if err != nil {
			t.Fatalf("Recipe failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "Pancakes\n========\n") {
			t.Errorf("text missing underlined title, got:\n%s", output)
		}
		if !strings.Contains(output, "Source: https://example.com/pancakes") {
			t.Errorf("text missing source, got:\n%s", output)
		}
	})

	t.Run("Many", func(t *testing.T) {
		other := &models.Recipe{Name: "Toast", Ingredients: []string{"bread"}}
		data, err := Recipes([]*models.Recipe{recipe, other}, CSV)
		if err != nil {
			t.Fatalf("Recipes failed: %v", err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 4 {
			t.Errorf("expected header plus 3 ingredient rows, got %d lines:\n%s", lines, data)
		}

		data, err = Recipes([]*models.Recipe{recipe, other}, Markdown)
		if err != nil {
			t.Fatalf("Recipes failed: %v", err)
		}
		if strings.Count(string(data), "\n---\n") != 1 {
			t.Errorf("expected one separator, got:\n%s", data)
		}
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "list.md")
	if err := WriteFile(path, []byte("# Shopping List\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	th.AssertFileExists(t, path)
	if got := th.MustReadFile(t, path); got != "# Shopping List\n" {
		t.Errorf("unexpected file content %q", got)
	}
}

func TestContentType(t *testing.T) {
	if !strings.HasPrefix(CSV.ContentType(), "text/csv") {
		t.Errorf("unexpected CSV content type %q", CSV.ContentType())
	}
	if JSON.ContentType() != "application/json" {
		t.Errorf("unexpected JSON content type %q", JSON.ContentType())
	}
	if Markdown.Ext() != "md" {
		t.Errorf("unexpected markdown extension %q", Markdown.Ext())
	}
}
