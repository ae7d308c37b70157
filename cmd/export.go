package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/homeboard/internal/formatter"
	"github.com/desertthunder/homeboard/internal/models"
)

// ExportShopping prints or saves the shopping list.
func (r *Runner) ExportShopping(ctx context.Context, cmd *cli.Command) error {
	return r.export(ctx, cmd, func(ctx context.Context, a *app, f formatter.Format) ([]byte, error) {
		items, err := a.deps.Shopping.List(ctx)
		if err != nil {
			return nil, err
		}
		return formatter.ShoppingList(items, f)
	})
}

// ExportMealPlan prints or saves the meal plan between --from and --to.
func (r *Runner) ExportMealPlan(ctx context.Context, cmd *cli.Command) error {
	return r.export(ctx, cmd, func(ctx context.Context, a *app, f formatter.Format) ([]byte, error) {
		var (
			entries []*models.MealPlanEntry
			err     error
		)
		from, to := cmd.String("from"), cmd.String("to")
		if from != "" || to != "" {
			entries, err = a.deps.MealPlan.Range(ctx, from, to)
		} else {
			entries, err = a.deps.MealPlan.List(ctx)
		}
		if err != nil {
			return nil, err
		}
		return formatter.MealPlan(entries, f)
	})
}

// ExportRecipes prints or saves one recipe by id, or every recipe when no id is given.
func (r *Runner) ExportRecipes(ctx context.Context, cmd *cli.Command) error {
	return r.export(ctx, cmd, func(ctx context.Context, a *app, f formatter.Format) ([]byte, error) {
		if id := cmd.StringArg("id"); id != "" {
			recipe, err := a.deps.Recipes.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return formatter.Recipe(recipe, f)
		}

		recipes, err := a.deps.Recipes.List(ctx)
		if err != nil {
			return nil, err
		}
		return formatter.Recipes(recipes, f)
	})
}

type renderFunc func(ctx context.Context, a *app, f formatter.Format) ([]byte, error)

func (r *Runner) export(ctx context.Context, cmd *cli.Command, render renderFunc) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := render(ctx, a, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("export written", "path", path, "format", format)
		return nil
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
