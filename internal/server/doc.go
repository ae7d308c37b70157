// Package server provides the dashboard's HTTP API: routing, middleware, OAuth login
// and callback handling, and JSON handlers for every widget.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [ChiRouter]
// implements it on go-chi, so patterns use chi's "{param}" syntax.
//
// [Middleware] is applied in the order it's added. [New] installs, in order:
//   - [RequestID]: tags requests with an id (reusing X-Request-Id)
//   - [Recoverer]: turns panics into JSON 500 responses
//   - [RequestLogger]: one structured log line per request
//
// # Handler Interface
//
// Handlers implement [Handler], returning their [Route] list so each group of endpoints
// keeps its route definitions next to its implementation:
//   - [AuthHandler]: /auth/{provider}/login, callback, logout, status
//   - [WidgetHandler]: calendar, weather, sports, Home Assistant, Spotify, Mealie
//   - [ContentHandler]: recipes, meal plan, shopping list, system config, and CSV,
//     Markdown or text exports of the first three
//   - [PhotoHandler]: picker session, status, QR code, sync, and /photos/{name}
//
// # OAuth Flow
//
// Login stores a random state in the response cache for ten minutes and redirects to the
// provider. The callback consumes the state exactly once, exchanges the code through the
// token refresher and renders a small HTML page. Logout deletes the token and invalidates
// the provider's cached responses.
//
// # Errors
//
// Handlers report failures through one mapping ([ErrorStatus]):
//   - invalid input or OAuth state : 400
//   - not authenticated : 401
//   - not found, no picker session : 404
//   - provider not configured : 503
//   - timed out : 504
//   - everything else : 500
//
// Passive widgets (calendar, weather, Home Assistant states) never reach this mapping
// for missing credentials; they serve mock data instead.
package server
