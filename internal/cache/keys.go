package cache

import (
	"fmt"
	"strings"
	"time"
)

// TTLs per provider.
const (
	EventsTTL       = 5 * time.Minute
	CalendarsTTL    = 30 * time.Minute
	HAStatesTTL     = 10 * time.Second
	HAAreasTTL      = 5 * time.Minute
	SpotifyTTL      = 5 * time.Second
	MealieTTL       = 30 * time.Minute
	WeatherTTL      = 10 * time.Minute
	SportsTTL       = 6 * time.Hour
	PhotosListTTL   = time.Minute
	SystemConfigTTL = time.Hour
	OAuthStateTTL   = 10 * time.Minute
)

// Fixed keys and key prefixes.
const (
	CalendarsKey      = "calendars:list"
	HAStatesKey       = "ha:states"
	HAAreasKey        = "ha:areas"
	SpotifyPlayerKey  = "spotify:player"
	SpotifyDevicesKey = "spotify:devices"
	MealiePlanKey     = "mealie:mealplan"
	MealieRecipesKey  = "mealie:recipes"
	PhotosListKey     = "photos:list"
	SystemConfigKey   = "system:config"

	eventsPrefix  = "events:"
	spotifyPrefix = "spotify:"
	oauthPrefix   = "oauth:state:"
)

// EventsKey identifies a merged calendar query. Differing windows or calendar sets never collide.
func EventsKey(timeMin, timeMax time.Time, calendarIDs []string) string {
	return fmt.Sprintf("%s%s:%s:%s", eventsPrefix,
		timeMin.UTC().Format(time.RFC3339), timeMax.UTC().Format(time.RFC3339), strings.Join(calendarIDs, ","))
}

// HAStatesSelectedKey holds the filtered state list for one entity selection.
func HAStatesSelectedKey(selection string) string {
	return HAStatesKey + ":selected:" + selection
}

// HAAreaEntitiesKey holds the entity ids assigned to one area.
func HAAreaEntitiesKey(area string) string {
	return HAAreasKey + ":" + area
}

// MealieRecipeKey holds a single Mealie recipe.
func MealieRecipeKey(id string) string {
	return MealieRecipesKey + ":" + id
}

func WeatherKey(lat, lon float64, units string) string {
	return fmt.Sprintf("weather:%.4f:%.4f:%s", lat, lon, units)
}

func SportsKey(teams []string) string {
	return "sports:" + strings.Join(teams, ",")
}

// OAuthStateKey holds a pending login's provider under its state parameter.
func OAuthStateKey(state string) string {
	return oauthPrefix + state
}

// Mutation names a write that makes cached reads stale.
type Mutation string

const (
	HAConfigSaved     Mutation = "ha-config-saved"
	HAServiceCalled   Mutation = "ha-service-called"
	PhotosSynced      Mutation = "photos-synced"
	SpotifyControl    Mutation = "spotify-control"
	SystemConfigSaved Mutation = "system-config-saved"
	GoogleLogout      Mutation = "google-logout"
	SpotifyLogout     Mutation = "spotify-logout"
)

// Invalidation lists exact keys and key prefixes dropped by a mutation.
type Invalidation struct {
	Keys     []string
	Prefixes []string
}

// Invalidations is the producer/consumer table for every cached read.
// A new cached read must be added here under each mutation that changes it.
var Invalidations = map[Mutation]Invalidation{
	// filtered state lists are keyed per selection, area listings follow the selection too
	HAConfigSaved:     {Prefixes: []string{HAStatesKey, HAAreasKey}},
	HAServiceCalled:   {Prefixes: []string{HAStatesKey}},
	PhotosSynced:      {Keys: []string{PhotosListKey}},
	SpotifyControl:    {Keys: []string{SpotifyPlayerKey, SpotifyDevicesKey}},
	SystemConfigSaved: {Keys: []string{SystemConfigKey}},
	GoogleLogout:      {Keys: []string{CalendarsKey, PhotosListKey}, Prefixes: []string{eventsPrefix}},
	SpotifyLogout:     {Prefixes: []string{spotifyPrefix}},
}

// Invalidate drops every key the mutation could have made stale.
// Unknown mutations are a no-op.
func (c *Cache) Invalidate(m Mutation) {
	inv, ok := Invalidations[m]
	if !ok {
		return
	}
	c.Delete(inv.Keys...)
	for _, p := range inv.Prefixes {
		c.DeletePrefix(p)
	}
}

// LogoutMutation returns the mutation for logging out of an OAuth provider.
func LogoutMutation(provider string) Mutation {
	switch provider {
	case "spotify":
		return SpotifyLogout
	default:
		return GoogleLogout
	}
}
