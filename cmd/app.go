package main

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/picker"
	"github.com/desertthunder/homeboard/internal/repositories"
	"github.com/desertthunder/homeboard/internal/server"
	"github.com/desertthunder/homeboard/internal/services"
	"github.com/desertthunder/homeboard/internal/shared"
	"github.com/desertthunder/homeboard/internal/storage"
	"github.com/desertthunder/homeboard/internal/tasks"
)

// app is every long-lived dependency built from one config.
type app struct {
	deps  server.Deps
	close func() error
}

// appOption adjusts the picker built by [Runner.open].
type appOption func(*picker.Opts)

// withSyncProgress forwards photo sync progress to ch.
func withSyncProgress(ch chan<- tasks.ProgressUpdate) appOption {
	return func(o *picker.Opts) { o.Progress = ch }
}

// open builds the store, cache, token refresher, provider clients and repositories.
func (r *Runner) open(ctx context.Context, config *shared.Config, opts ...appOption) (*app, error) {
	kv, closeKV, err := storage.Open(ctx, storage.Options{
		Backend:     config.Storage.Backend,
		DataDir:     config.Storage.DataDir,
		SQLitePath:  config.Storage.SQLitePath,
		RedisAddr:   config.Storage.RedisAddr,
		RedisDB:     config.Storage.RedisDB,
		RedisPrefix: config.Storage.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %q storage: %w", config.Storage.Backend, err)
	}

	logger := r.logger
	timeout := config.Server.Timeout()
	c := cache.New(nil)

	refresher := credentials.NewRefresher(credentials.RefresherOpts{
		Store: credentials.NewStore(kv, logger, nil),
		Configs: map[credentials.Provider]*oauth2.Config{
			credentials.Google:  credentials.GoogleOAuthConfig(config.Google),
			credentials.Spotify: credentials.SpotifyOAuthConfig(config.Spotify),
		},
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	})

	settings := repositories.NewSettingsRepository(kv, c, logger)
	recipes := repositories.NewRecipeRepository(kv, nil)

	pickerOpts := picker.Opts{
		Store:  kv,
		Tokens: refresher,
		Cache:  c,
		Config: config.Photos,
		Dir:    config.PhotoDir(),
		Photos: services.NewPhotosClient(services.PhotosClientOpts{Timeout: timeout, Logger: logger}),
		Logger: logger,
	}
	for _, opt := range opts {
		opt(&pickerOpts)
	}

	deps := server.Deps{
		Config:    config,
		Refresher: refresher,
		Cache:     c,
		Calendar: services.NewCalendarService(services.CalendarOpts{
			Config: config.Google, Tokens: refresher, Cache: c, Timeout: timeout, Logger: logger,
		}),
		Weather: services.NewWeatherService(services.WeatherOpts{
			Config: config.Weather, Cache: c, Timeout: timeout, Logger: logger,
		}),
		Sports: services.NewSportsService(services.SportsOpts{
			Config: config.Sports, Cache: c, Timeout: timeout, Logger: logger,
		}),
		HomeAssistant: services.NewHomeAssistantService(services.HomeAssistantOpts{
			Config: config.HomeAssistant, Settings: settings, Cache: c, Timeout: timeout, Logger: logger,
		}),
		Spotify: services.NewSpotifyService(services.SpotifyOpts{
			Config: config.Spotify, Tokens: refresher, Cache: c, Timeout: timeout, Logger: logger,
		}),
		Mealie: services.NewMealieService(services.MealieOpts{
			Config: config.Mealie, Cache: c, Timeout: timeout, Logger: logger,
		}),
		Picker:   picker.New(pickerOpts),
		Recipes:  recipes,
		MealPlan: repositories.NewMealPlanRepository(kv, recipes),
		Shopping: repositories.NewShoppingListRepository(kv, nil),
		Settings: settings,
		Logger:   logger,
	}

	return &app{deps: deps, close: closeKV}, nil
}

// providers lists the provider clients in display order.
func (a *app) providers() []services.Service {
	d := a.deps
	return []services.Service{d.Calendar, d.Weather, d.Sports, d.HomeAssistant, d.Spotify, d.Mealie}
}
