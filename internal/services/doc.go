// Package services implements the provider clients behind the dashboard widgets and defines
// the [Service] interface they share.
//
// # Shared Client
//
// [Client] wraps net/http with a per-provider [rate.Limiter], bearer authentication and
// status mapping. Every provider client builds its requests through it.
//
// # Live and Mock Modes
//
// Each client reports [Service.Configured]. Unconfigured clients never call upstream:
//   - [CalendarService] : 14 days of mock events
//   - [WeatherService] : mock conditions
//   - [HomeAssistantService] : mock entities and areas
//   - [MealieService], [SportsService] : empty lists
//   - [SpotifyService] : a "not configured" playback state
//
// Passive widgets (calendar, weather) also fall back to mock data when the account is not
// connected or the upstream call fails. Explicit actions (player controls, Home Assistant
// service calls) return the error instead.
//
// # OAuth Tokens
//
// Google and Spotify clients obtain access tokens through a [TokenSource], normally
// [credentials.Refresher], which refreshes tokens shortly before they expire.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrNotConfigured] : explicit action on an unconfigured provider
//   - [shared.ErrNotAuthenticated] : no valid token, or upstream returned 401
//   - [shared.ErrUpstreamUnavailable] : network failure or unexpected status
//   - [shared.ErrInvalidInput] : bad arguments (volume, service name, ids)
//
// # Caching
//
// Successful reads are stored in the response cache with provider-specific TTLs
// (see the cache package); mutations invalidate the keys they affect.
package services
