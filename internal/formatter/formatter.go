// Package formatter renders the household content (shopping list, meal plan, recipes)
// as CSV, Markdown, plain text or JSON for printing and sharing.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

// Format is an export encoding.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	JSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias ("markdown", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q (want csv, md, txt or json)", shared.ErrInvalidArgument, s)
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case JSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// ShoppingList renders items in f. Unchecked items come first in Markdown and text.
func ShoppingList(items []*models.ShoppingListItem, f Format) ([]byte, error) {
	switch f {
	case CSV:
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, []string{item.Name, item.Quantity, fmt.Sprint(item.Checked)})
		}
		return writeCSV([]string{"Name", "Quantity", "Checked"}, rows)
	case JSON:
		return marshal(items)
	}

	var buf bytes.Buffer
	if f == Markdown {
		buf.WriteString("# Shopping List\n\n")
	} else {
		buf.WriteString("Shopping List\n\n")
	}
	if len(items) == 0 {
		buf.WriteString("Nothing to buy.\n")
		return buf.Bytes(), nil
	}

	for _, checked := range []bool{false, true} {
		for _, item := range items {
			if item.Checked != checked {
				continue
			}
			name := item.Name
			if item.Quantity != "" {
				name = fmt.Sprintf("%s (%s)", item.Name, item.Quantity)
			}
			box := " "
			if item.Checked {
				box = "x"
			}
			if f == Markdown {
				fmt.Fprintf(&buf, "- [%s] %s\n", box, name)
			} else {
				fmt.Fprintf(&buf, "[%s] %s\n", box, name)
			}
		}
	}
	return buf.Bytes(), nil
}

// MealPlan renders entries in f, grouped by date in Markdown and text.
// Entries are expected in date order, as the meal plan repository returns them.
func MealPlan(entries []*models.MealPlanEntry, f Format) ([]byte, error) {
	switch f {
	case CSV:
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Date, string(e.MealType), recipeName(e), e.Notes})
		}
		return writeCSV([]string{"Date", "Meal", "Recipe", "Notes"}, rows)
	case JSON:
		return marshal(entries)
	}

	var buf bytes.Buffer
	if f == Markdown {
		buf.WriteString("# Meal Plan\n")
	} else {
		buf.WriteString("Meal Plan\n")
	}
	if len(entries) == 0 {
		buf.WriteString("\nNothing planned.\n")
		return buf.Bytes(), nil
	}

	date := ""
	for _, e := range entries {
		if e.Date != date {
			date = e.Date
			if f == Markdown {
				fmt.Fprintf(&buf, "\n## %s\n\n", date)
			} else {
				fmt.Fprintf(&buf, "\n%s\n", date)
			}
		}

		line := fmt.Sprintf("%s: %s", e.MealType, recipeName(e))
		if e.Notes != "" {
			line += " (" + e.Notes + ")"
		}
		if f == Markdown {
			fmt.Fprintf(&buf, "- **%s**\n", line)
		} else {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.Bytes(), nil
}

func recipeName(e *models.MealPlanEntry) string {
	if e.RecipeName == "" {
		return models.UnknownRecipe
	}
	return e.RecipeName
}

// Recipe renders one recipe in f. CSV lists one ingredient per row.
func Recipe(r *models.Recipe, f Format) ([]byte, error) {
	switch f {
	case CSV:
		rows := make([][]string, 0, len(r.Ingredients))
		for _, ing := range r.Ingredients {
			rows = append(rows, []string{r.Name, ing})
		}
		return writeCSV([]string{"Recipe", "Ingredient"}, rows)
	case JSON:
		return marshal(r)
	}

	md := f == Markdown
	var buf bytes.Buffer
	if md {
		fmt.Fprintf(&buf, "# %s\n\n", r.Name)
		if r.ImageURL != "" {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", r.Name, r.ImageURL)
		}
	} else {
		fmt.Fprintf(&buf, "%s\n%s\n\n", r.Name, strings.Repeat("=", len(r.Name)))
	}

	if r.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", r.Description)
	}

	var meta []string
	if r.Servings > 0 {
		meta = append(meta, fmt.Sprintf("Serves %d", r.Servings))
	}
	if r.PrepTime != "" {
		meta = append(meta, "Prep "+r.PrepTime)
	}
	if r.CookTime != "" {
		meta = append(meta, "Cook "+r.CookTime)
	}
	if len(meta) > 0 {
		fmt.Fprintf(&buf, "%s\n\n", strings.Join(meta, " | "))
	}

	heading(&buf, "Ingredients", md)
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&buf, "- %s\n", ing)
	}
	buf.WriteString("\n")

	heading(&buf, "Instructions", md)
	for i, step := range r.Instructions {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, step)
	}

	if r.SourceURL != "" {
		if md {
			fmt.Fprintf(&buf, "\n[Source](%s)\n", r.SourceURL)
		} else {
			fmt.Fprintf(&buf, "\nSource: %s\n", r.SourceURL)
		}
	}
	return buf.Bytes(), nil
}

// Recipes renders every recipe in f, separated by a rule in Markdown and text.
func Recipes(recipes []*models.Recipe, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return marshal(recipes)
	case CSV:
		var rows [][]string
		for _, r := range recipes {
			for _, ing := range r.Ingredients {
				rows = append(rows, []string{r.Name, ing})
			}
		}
		return writeCSV([]string{"Recipe", "Ingredient"}, rows)
	}

	var buf bytes.Buffer
	for i, r := range recipes {
		if i > 0 {
			buf.WriteString("\n---\n\n")
		}
		data, err := Recipe(r, f)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func heading(buf *bytes.Buffer, title string, md bool) {
	if md {
		fmt.Fprintf(buf, "## %s\n\n", title)
		return
	}
	fmt.Fprintf(buf, "%s:\n", title)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV records: %w", err)
	}
	return buf.Bytes(), nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
