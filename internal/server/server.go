package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/picker"
	"github.com/desertthunder/homeboard/internal/repositories"
	"github.com/desertthunder/homeboard/internal/services"
	"github.com/desertthunder/homeboard/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Route is one method and pattern served by a [Handler].
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Handler groups related endpoints so they can be registered together.
type Handler interface {
	Routes() []Route // Routes returns the endpoints this handler serves
}

// Router defines HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers every route of a [Handler]
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Deps are the services and stores the HTTP layer is built on.
type Deps struct {
	Config        *shared.Config
	Refresher     *credentials.Refresher
	Cache         *cache.Cache
	Calendar      *services.CalendarService
	Weather       *services.WeatherService
	Sports        *services.SportsService
	HomeAssistant *services.HomeAssistantService
	Spotify       *services.SpotifyService
	Mealie        *services.MealieService
	Picker        *picker.Tracker
	Recipes       *repositories.RecipeRepository
	MealPlan      *repositories.MealPlanRepository
	Shopping      *repositories.ShoppingListRepository
	Settings      *repositories.SettingsRepository
	Logger        *log.Logger
}

// Server serves the dashboard API.
type Server struct {
	deps   Deps
	router Router
	logger *log.Logger
}

// New builds the router and registers every endpoint.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.Config == nil {
		deps.Config = shared.DefaultConfig()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(nil)
	}

	logger := deps.Logger.With("component", "server")
	router := NewRouter()
	router.Use(RequestID, Recoverer(logger), RequestLogger(logger))

	s := &Server{deps: deps, router: router, logger: logger}

	for _, h := range []Handler{
		&AuthHandler{deps: deps, logger: logger},
		&WidgetHandler{deps: deps, logger: logger},
		&ContentHandler{deps: deps, logger: logger},
		&PhotoHandler{deps: deps, logger: logger},
	} {
		router.Handler(h)
	}
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
