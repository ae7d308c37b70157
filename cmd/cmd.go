// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (.toml, .yaml or .yml)",
		Value:   "config.toml",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the sqlite store and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the latest migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand manages Google and Spotify tokens
func authCommand(r *Runner) *cli.Command {
	providerArg := []cli.Argument{&cli.StringArg{Name: "provider", UsageText: "google or spotify"}}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage provider authentication",
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Open the server's OAuth login page in a browser",
				Arguments: providerArg,
				Flags:     []cli.Flag{configFlag()},
				Action:    r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show stored token state for each provider",
				Flags:  []cli.Flag{configFlag(), jsonFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:      "logout",
				Usage:     "Delete a provider's stored token",
				Arguments: providerArg,
				Flags:     []cli.Flag{configFlag()},
				Action:    r.AuthLogout,
			},
		},
	}
}

// photosCommand drives the Google Photos picker
func photosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "photos",
		Usage: "Google Photos slideshow",
		Commands: []*cli.Command{
			{
				Name:   "pick",
				Usage:  "Choose photos on your phone, then sync them",
				Flags:  []cli.Flag{configFlag()},
				Action: r.PhotosPick,
			},
			{
				Name:   "sync",
				Usage:  "Download the last selection",
				Flags:  []cli.Flag{configFlag(), jsonFlag()},
				Action: r.PhotosSync,
			},
		},
	}
}

// statusCommand reports provider modes
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show which providers serve live or mock data",
		Flags:  []cli.Flag{configFlag(), jsonFlag()},
		Action: r.Status,
	}
}

func exportFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "csv, md, txt or json",
			Value:   "txt",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}, extra...)
}

// exportCommand renders household content for printing
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the shopping list, meal plan or recipes",
		Commands: []*cli.Command{
			{
				Name:   "shopping",
				Usage:  "Export the shopping list",
				Flags:  exportFlags(),
				Action: r.ExportShopping,
			},
			{
				Name:  "mealplan",
				Usage: "Export the meal plan, optionally limited to a date range",
				Flags: exportFlags(
					&cli.StringFlag{Name: "from", Usage: "First date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "to", Usage: "Last date (YYYY-MM-DD)"},
				),
				Action: r.ExportMealPlan,
			},
			{
				Name:      "recipes",
				Usage:     "Export one recipe, or all of them",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id", UsageText: "recipe id (optional)"}},
				Flags:     exportFlags(),
				Action:    r.ExportRecipes,
			},
		},
	}
}
