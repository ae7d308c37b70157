package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/services"
	"github.com/desertthunder/homeboard/internal/shared"
)

// WidgetHandler serves the provider-backed dashboard widgets.
type WidgetHandler struct {
	deps   Deps
	logger *log.Logger
}

func (h *WidgetHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/api/health", h.health},

		{http.MethodGet, "/api/calendar/events", h.calendarEvents},
		{http.MethodGet, "/api/calendar/calendars", h.calendars},
		{http.MethodGet, "/api/weather", h.weather},
		{http.MethodGet, "/api/sports", h.sports},

		{http.MethodGet, "/api/ha/states", h.haStates},
		{http.MethodGet, "/api/ha/entities", h.haEntities},
		{http.MethodGet, "/api/ha/areas", h.haAreas},
		{http.MethodGet, "/api/ha/areas/{area}/entities", h.haAreaEntities},
		{http.MethodGet, "/api/ha/config", h.haConfig},
		{http.MethodPost, "/api/ha/config", h.saveHAConfig},
		{http.MethodPost, "/api/ha/services/{domain}/{service}", h.haCallService},

		{http.MethodGet, "/api/spotify/player", h.spotifyPlayer},
		{http.MethodGet, "/api/spotify/devices", h.spotifyDevices},
		{http.MethodPost, "/api/spotify/player/{action}", h.spotifyControl},
		{http.MethodPut, "/api/spotify/player/volume", h.spotifyVolume},
		{http.MethodPut, "/api/spotify/player/transfer", h.spotifyTransfer},

		{http.MethodGet, "/api/mealie/mealplan", h.mealieMealPlan},
		{http.MethodGet, "/api/mealie/recipes", h.mealieRecipes},
		{http.MethodGet, "/api/mealie/recipes/{id}", h.mealieRecipe},
	}
}

// ProviderMode reports "live" or "mock" for a provider client.
func ProviderMode(s services.Service) string {
	if s.Configured() {
		return "live"
	}
	return "mock"
}

func (h *WidgetHandler) providers() []services.Service {
	return []services.Service{
		h.deps.Calendar, h.deps.Weather, h.deps.Sports, h.deps.HomeAssistant, h.deps.Spotify, h.deps.Mealie,
	}
}

func (h *WidgetHandler) health(w http.ResponseWriter, r *http.Request) {
	modes := map[string]string{}
	for _, s := range h.providers() {
		modes[s.Name()] = ProviderMode(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"time":      time.Now().UTC(),
		"providers": modes,
	})
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", shared.ErrInvalidInput, name)
	}
	return t, nil
}

func (h *WidgetHandler) calendarEvents(w http.ResponseWriter, r *http.Request) {
	timeMin, err := parseTimeParam(r, "timeMin")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	timeMax, err := parseTimeParam(r, "timeMax")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	events, err := h.deps.Calendar.Events(r.Context(), timeMin, timeMax)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "mock": !h.deps.Calendar.Configured()})
}

func (h *WidgetHandler) calendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.deps.Calendar.Calendars(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, calendars)
}

func (h *WidgetHandler) weather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Weather.Current(r.Context()))
}

func (h *WidgetHandler) sports(w http.ResponseWriter, r *http.Request) {
	games, err := h.deps.Sports.Games(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *WidgetHandler) haStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.deps.HomeAssistant.States(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (h *WidgetHandler) haEntities(w http.ResponseWriter, r *http.Request) {
	states, err := h.deps.HomeAssistant.AllStates(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (h *WidgetHandler) haAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.deps.HomeAssistant.Areas(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *WidgetHandler) haAreaEntities(w http.ResponseWriter, r *http.Request) {
	ids, err := h.deps.HomeAssistant.AreaEntities(r.Context(), chi.URLParam(r, "area"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *WidgetHandler) haConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.deps.Settings.HAConfig(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *WidgetHandler) saveHAConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.HAConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	saved, err := h.deps.Settings.SaveHAConfig(r.Context(), cfg)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *WidgetHandler) haCallService(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &data); err != nil {
			fail(w, r, h.logger, err)
			return
		}
	}

	changed, err := h.deps.HomeAssistant.CallService(r.Context(), chi.URLParam(r, "domain"), chi.URLParam(r, "service"), data)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, changed)
}

func (h *WidgetHandler) spotifyPlayer(w http.ResponseWriter, r *http.Request) {
	playback, err := h.deps.Spotify.Playback(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playback)
}

func (h *WidgetHandler) spotifyDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.deps.Spotify.Devices(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *WidgetHandler) spotifyControl(w http.ResponseWriter, r *http.Request) {
	action := services.PlayerAction(chi.URLParam(r, "action"))
	if err := h.deps.Spotify.Control(r.Context(), action); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

type volumeRequest struct {
	Volume *int `json:"volume"`
}

func (h *WidgetHandler) spotifyVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if v := r.URL.Query().Get("volume_percent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(w, r, h.logger, fmt.Errorf("%w: volume_percent must be a number", shared.ErrInvalidInput))
			return
		}
		req.Volume = &n
	} else if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if req.Volume == nil {
		fail(w, r, h.logger, fmt.Errorf("%w: volume is required", shared.ErrInvalidInput))
		return
	}

	if err := h.deps.Spotify.SetVolume(r.Context(), *req.Volume); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

type transferRequest struct {
	DeviceID string `json:"deviceId"`
	Play     bool   `json:"play"`
}

func (h *WidgetHandler) spotifyTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.deps.Spotify.Transfer(r.Context(), req.DeviceID, req.Play); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (h *WidgetHandler) mealieMealPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.deps.Mealie.CurrentMealPlan(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *WidgetHandler) mealieRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.deps.Mealie.Recipes(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *WidgetHandler) mealieRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.deps.Mealie.Recipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}
