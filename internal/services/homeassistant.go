// Home Assistant REST API client
//
// API reference: https://developers.home-assistant.io/docs/api/rest/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

// Templates rendered by POST /api/template. Areas come back as a JSON array of {id, name}.
const (
	areasTemplate        = `[{% for a in areas() %}{"id": {{ a | tojson }}, "name": {{ area_name(a) | tojson }}}{% if not loop.last %},{% endif %}{% endfor %}]`
	areaEntitiesTemplate = `{{ area_entities(%s) | tojson }}`
)

// DashboardDomains are shown when no entities have been selected.
var DashboardDomains = []string{"light", "switch", "climate", "cover", "fan", "lock", "media_player", "sensor"}

var serviceNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type haState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed"`
}

// HAConfigSource provides the dashboard's entity selection.
type HAConfigSource interface {
	HAConfig(ctx context.Context) (models.HAConfig, error)
}

// HomeAssistantService reads states and calls services on a Home Assistant instance.
type HomeAssistantService struct {
	client     *Client
	token      string
	settings   HAConfigSource
	cache      *cache.Cache
	configured bool
	logger     *log.Logger
}

// HomeAssistantOpts contains dependencies for [NewHomeAssistantService].
type HomeAssistantOpts struct {
	Config   shared.HomeAssistantConfig
	Settings HAConfigSource
	Cache    *cache.Cache
	Client   *Client
	Timeout  time.Duration
	Logger   *log.Logger
}

func NewHomeAssistantService(opts HomeAssistantOpts) *HomeAssistantService {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewClient(ClientOpts{
			Name:      "homeassistant",
			BaseURL:   opts.Config.URL,
			RateLimit: 20,
			Burst:     10,
			Logger:    opts.Logger,
			Timeout:   opts.Timeout,
		})
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil)
	}

	return &HomeAssistantService{
		client:     opts.Client,
		token:      opts.Config.Token,
		settings:   opts.Settings,
		cache:      opts.Cache,
		configured: opts.Config.Configured(),
		logger:     opts.Logger.With("component", "homeassistant"),
	}
}

func (h *HomeAssistantService) Name() string     { return "Home Assistant" }
func (h *HomeAssistantService) Configured() bool { return h.configured }

func (h *HomeAssistantService) selection(ctx context.Context) models.HAConfig {
	cfg := models.HAConfig{}
	if h.settings != nil {
		loaded, err := h.settings.HAConfig(ctx)
		if err != nil {
			h.logger.Warn("failed to load ha-config, showing defaults", "error", err)
		} else {
			cfg = loaded
		}
	}
	return cfg
}

// AllStates returns every entity state, unfiltered.
func (h *HomeAssistantService) AllStates(ctx context.Context) ([]models.HAEntity, error) {
	if !h.configured {
		return MockEntities(), nil
	}

	return cache.Fetch(ctx, h.cache, cache.HAStatesKey, cache.HAStatesTTL, func(ctx context.Context) ([]models.HAEntity, error) {
		var states []haState
		if err := h.client.do(ctx, request{path: "/api/states", bearer: h.token}, &states); err != nil {
			return nil, err
		}

		entities := make([]models.HAEntity, 0, len(states))
		for _, s := range states {
			entities = append(entities, toEntity(s))
		}
		slices.SortFunc(entities, func(a, b models.HAEntity) int { return strings.Compare(a.EntityID, b.EntityID) })
		return entities, nil
	})
}

// States returns the dashboard entities: the saved selection in selection order with
// configured names applied, or every entity in [DashboardDomains] when nothing is selected.
func (h *HomeAssistantService) States(ctx context.Context) ([]models.HAEntity, error) {
	cfg := h.selection(ctx)

	return cache.Fetch(ctx, h.cache, cache.HAStatesSelectedKey(cfg.Selection()), cache.HAStatesTTL, func(ctx context.Context) ([]models.HAEntity, error) {
		all, err := h.AllStates(ctx)
		if err != nil {
			return nil, err
		}
		return FilterEntities(all, cfg), nil
	})
}

// FilterEntities applies an entity selection and display names to states.
func FilterEntities(all []models.HAEntity, cfg models.HAConfig) []models.HAEntity {
	var out []models.HAEntity

	if len(cfg.SelectedEntities) == 0 {
		for _, e := range all {
			if slices.Contains(DashboardDomains, e.Domain) {
				e.Name = cfg.DisplayName(e.EntityID, e.Name)
				out = append(out, e)
			}
		}
		return nonNil(out)
	}

	byID := make(map[string]models.HAEntity, len(all))
	for _, e := range all {
		byID[e.EntityID] = e
	}
	for _, id := range cfg.SelectedEntities {
		e, ok := byID[id]
		if !ok {
			continue
		}
		e.Name = cfg.DisplayName(id, e.Name)
		out = append(out, e)
	}
	return nonNil(out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func toEntity(s haState) models.HAEntity {
	domain, _, _ := strings.Cut(s.EntityID, ".")
	name := s.EntityID
	if fn, ok := s.Attributes["friendly_name"].(string); ok && fn != "" {
		name = fn
	}
	attrs := s.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return models.HAEntity{
		EntityID:    s.EntityID,
		State:       s.State,
		Name:        name,
		Domain:      domain,
		Attributes:  attrs,
		LastChanged: s.LastChanged,
	}
}

// renderTemplate renders a Jinja template server-side and decodes its JSON output into v.
func (h *HomeAssistantService) renderTemplate(ctx context.Context, tmpl string, v any) error {
	resp, err := h.client.send(ctx, request{method: http.MethodPost, path: "/api/template", body: map[string]string{"template": tmpl}, bearer: h.token})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: homeassistant: template output is not JSON: %v", shared.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Areas lists the configured areas.
func (h *HomeAssistantService) Areas(ctx context.Context) ([]models.HAArea, error) {
	if !h.configured {
		return mockAreas(), nil
	}

	return cache.Fetch(ctx, h.cache, cache.HAAreasKey, cache.HAAreasTTL, func(ctx context.Context) ([]models.HAArea, error) {
		var areas []models.HAArea
		if err := h.renderTemplate(ctx, areasTemplate, &areas); err != nil {
			return nil, err
		}
		return nonNil(areas), nil
	})
}

// AreaEntities lists the entity ids assigned to area.
func (h *HomeAssistantService) AreaEntities(ctx context.Context, area string) ([]string, error) {
	if strings.TrimSpace(area) == "" {
		return nil, fmt.Errorf("%w: area is required", shared.ErrInvalidInput)
	}
	if !h.configured {
		return mockAreaEntities(area), nil
	}

	return cache.Fetch(ctx, h.cache, cache.HAAreaEntitiesKey(area), cache.HAAreasTTL, func(ctx context.Context) ([]string, error) {
		quoted, err := json.Marshal(area)
		if err != nil {
			return nil, err
		}

		var ids []string
		if err := h.renderTemplate(ctx, fmt.Sprintf(areaEntitiesTemplate, quoted), &ids); err != nil {
			return nil, err
		}
		return nonNil(ids), nil
	})
}

// CallService invokes domain.service with data and returns the states it changed.
func (h *HomeAssistantService) CallService(ctx context.Context, domain, service string, data map[string]any) ([]models.HAEntity, error) {
	if !serviceNamePattern.MatchString(domain) || !serviceNamePattern.MatchString(service) {
		return nil, fmt.Errorf("%w: invalid service %s.%s", shared.ErrInvalidInput, domain, service)
	}
	if !h.configured {
		return nil, fmt.Errorf("%w: home assistant", shared.ErrNotConfigured)
	}
	if data == nil {
		data = map[string]any{}
	}

	var changed []haState
	err := h.client.do(ctx, request{method: http.MethodPost, path: "/api/services/" + domain + "/" + service, body: data, bearer: h.token}, &changed)
	h.cache.Invalidate(cache.HAServiceCalled)
	if err != nil {
		return nil, err
	}

	h.logger.Info("called service", "service", domain+"."+service, "changed", len(changed))
	out := make([]models.HAEntity, 0, len(changed))
	for _, s := range changed {
		out = append(out, toEntity(s))
	}
	return out, nil
}

// MockEntities is served when Home Assistant is not configured.
func MockEntities() []models.HAEntity {
	mk := func(id, state, name string, attrs map[string]any) models.HAEntity {
		domain, _, _ := strings.Cut(id, ".")
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrs["friendly_name"] = name
		return models.HAEntity{EntityID: id, State: state, Name: name, Domain: domain, Attributes: attrs}
	}

	return []models.HAEntity{
		mk("climate.thermostat", "heat", "Thermostat", map[string]any{"current_temperature": 70, "temperature": 72}),
		mk("light.kitchen", "on", "Kitchen Lights", map[string]any{"brightness": 200}),
		mk("light.living_room", "off", "Living Room Lights", nil),
		mk("lock.front_door", "locked", "Front Door", nil),
		mk("sensor.outdoor_temperature", "58", "Outdoor Temperature", map[string]any{"unit_of_measurement": "°F"}),
		mk("switch.coffee_maker", "off", "Coffee Maker", nil),
	}
}

func mockAreas() []models.HAArea {
	return []models.HAArea{{ID: "kitchen", Name: "Kitchen"}, {ID: "living_room", Name: "Living Room"}}
}

func mockAreaEntities(area string) []string {
	switch area {
	case "kitchen":
		return []string{"light.kitchen", "switch.coffee_maker"}
	case "living_room":
		return []string{"light.living_room", "climate.thermostat"}
	default:
		return []string{}
	}
}
