package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/shared"
)

// AuthHandler runs the OAuth authorization code flow for Google and Spotify.
//
// The login endpoint stores a random state in the response cache for ten minutes;
// the callback accepts it exactly once.
type AuthHandler struct {
	deps   Deps
	logger *log.Logger
}

func (h *AuthHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/auth/{provider}/login", h.login},
		{http.MethodGet, "/auth/{provider}/callback", h.callback},
		{http.MethodPost, "/auth/{provider}/logout", h.logout},
		{http.MethodGet, "/auth/{provider}/status", h.status},
	}
}

func provider(r *http.Request) (credentials.Provider, error) {
	name := chi.URLParam(r, "provider")
	p, ok := credentials.ParseProvider(name)
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", shared.ErrNotFound, name)
	}
	return p, nil
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	p, err := provider(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	authURL, err := h.deps.Refresher.AuthCodeURL(p, state)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	h.deps.Cache.Set(cache.OAuthStateKey(state), string(p), cache.OAuthStateTTL)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	p, err := provider(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "provider", p, "error", errParam)
		renderAuthPage(w, http.StatusBadRequest, "Authorization Failed", errParam+" "+query.Get("error_description"))
		return
	}

	key := cache.OAuthStateKey(query.Get("state"))
	stored, ok := h.deps.Cache.Get(key)
	h.deps.Cache.Delete(key)
	if query.Get("state") == "" || !ok || stored != string(p) {
		renderAuthPage(w, http.StatusBadRequest, "Authorization Failed", shared.ErrInvalidState.Error())
		return
	}

	code := query.Get("code")
	if code == "" {
		renderAuthPage(w, http.StatusBadRequest, "Authorization Failed", "missing authorization code")
		return
	}

	if _, err := h.deps.Refresher.Exchange(r.Context(), p, code); err != nil {
		h.logger.Error("token exchange failed", "provider", p, "error", err)
		renderAuthPage(w, http.StatusBadGateway, "Authorization Failed", "token exchange failed")
		return
	}

	h.logger.Info("provider connected", "provider", p)
	renderAuthPage(w, http.StatusOK, "Authorization Successful", "You can close this window and return to the dashboard.")
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	p, err := provider(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	if err := h.deps.Refresher.Logout(r.Context(), p); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.deps.Cache.Invalidate(cache.LogoutMutation(string(p)))

	h.logger.Info("provider disconnected", "provider", p)
	writeJSON(w, http.StatusOK, success)
}

func (h *AuthHandler) status(w http.ResponseWriter, r *http.Request) {
	p, err := provider(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	st, err := h.deps.Refresher.Status(r.Context(), p)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func renderAuthPage(w http.ResponseWriter, status int, title, message string) {
	color := "#1DB954"
	if status != http.StatusOK {
		color = "#E5484D"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: %[3]s; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>%[2]s</p>
        <a href="/">Back to dashboard</a>
    </div>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(message), color)
}
