package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/desertthunder/homeboard/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultMargin is how long before expiry a token is considered stale.
	DefaultMargin = 60 * time.Second
)

// GoogleScopes covers calendar reads and the Photos Picker.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/photospicker.mediaitems.readonly",
}

// SpotifyScopes covers playback state and control.
var SpotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// GoogleOAuthConfig returns the OAuth2 config for Google authentication.
func GoogleOAuthConfig(cfg shared.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       GoogleScopes,
		Endpoint:     googleOAuth.Endpoint,
	}
}

// SpotifyOAuthConfig returns the OAuth2 config for Spotify; the token endpoint uses HTTP Basic client auth.
func SpotifyOAuthConfig(cfg shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Refresher hands out valid access tokens, refreshing them shortly before expiry.
//
// There is no lock around a refresh: two callers inside the expiry window may both refresh,
// and the later save wins. Providers treat refresh as idempotent so the cost is one extra call.
type Refresher struct {
	store   *Store
	configs map[Provider]*oauth2.Config
	client  *http.Client
	now     func() time.Time
	margin  time.Duration
	logger  *log.Logger
}

// RefresherOpts contains dependencies for [NewRefresher].
//
// A provider missing from Configs (or with empty client credentials) is "not configured".
type RefresherOpts struct {
	Store      *Store
	Configs    map[Provider]*oauth2.Config
	HTTPClient *http.Client
	Now        func() time.Time
	Margin     time.Duration
	Logger     *log.Logger
}

func NewRefresher(opts RefresherOpts) *Refresher {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultMargin
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Configs == nil {
		opts.Configs = map[Provider]*oauth2.Config{}
	}

	return &Refresher{
		store:   opts.Store,
		configs: opts.Configs,
		client:  opts.HTTPClient,
		now:     opts.Now,
		margin:  opts.Margin,
		logger:  opts.Logger,
	}
}

// Configured reports whether client credentials exist for p.
func (r *Refresher) Configured(p Provider) bool {
	cfg, ok := r.configs[p]
	return ok && cfg.ClientID != "" && cfg.ClientSecret != ""
}

func (r *Refresher) config(p Provider) (*oauth2.Config, error) {
	if !r.Configured(p) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotConfigured, p)
	}
	return r.configs[p], nil
}

func (r *Refresher) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, r.client)
}

// GetValidToken returns a token that is good for at least the refresh margin.
//
// Errors:
//   - [shared.ErrNotAuthenticated]: no token, or an expiring token without a refresh token
//   - [shared.ErrRefreshFailed]: the refresh grant failed
func (r *Refresher) GetValidToken(ctx context.Context, p Provider) (*Token, error) {
	tok, err := r.store.Load(ctx, p)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, fmt.Errorf("%w: no %s token", shared.ErrNotAuthenticated, p)
	}

	if !tok.Expiring(r.now(), r.margin) {
		return tok, nil
	}

	if !tok.CanRefresh() {
		return nil, fmt.Errorf("%w: %s token expired without refresh token", shared.ErrNotAuthenticated, p)
	}

	return r.refresh(ctx, p, tok)
}

// refresh performs one refresh-token grant and persists the result.
func (r *Refresher) refresh(ctx context.Context, p Provider, old *Token) (*Token, error) {
	cfg, err := r.config(p)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With("provider", p)
	logger.Debug("refreshing access token", "expires_at", old.Expiry())

	src := cfg.TokenSource(r.oauthContext(ctx), &oauth2.Token{RefreshToken: old.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			logger.Error("refresh token rejected, re-authorization required", "error", err)
		} else {
			logger.Warn("token refresh failed", "error", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrRefreshFailed, p, err)
	}

	tok := fromOAuth2(fresh, r.now())
	if tok.RefreshToken == "" {
		tok.RefreshToken = old.RefreshToken
	}
	if tok.Scope == "" {
		tok.Scope = old.Scope
	}

	if err := r.store.Save(ctx, p, tok); err != nil {
		logger.Warn("failed to persist refreshed token", "error", err)
	}

	logger.Info("refreshed access token", "expires_at", tok.Expiry().Format(time.RFC3339))
	return tok, nil
}

// AuthCodeURL builds the provider's consent URL. Google is asked for offline access so a refresh token is issued.
func (r *Refresher) AuthCodeURL(p Provider, state string) (string, error) {
	cfg, err := r.config(p)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if p == Google {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// Exchange trades an authorization code for a token and saves it.
//
// A previously stored refresh token is kept if the provider does not issue a new one.
func (r *Refresher) Exchange(ctx context.Context, p Provider, code string) (*Token, error) {
	cfg, err := r.config(p)
	if err != nil {
		return nil, err
	}

	oauthTok, err := cfg.Exchange(r.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %v", shared.ErrNotAuthenticated, err)
	}

	tok := fromOAuth2(oauthTok, r.now())
	if tok.RefreshToken == "" {
		if prev, _ := r.store.Load(ctx, p); prev != nil {
			tok.RefreshToken = prev.RefreshToken
		}
	}

	if err := r.store.Save(ctx, p, tok); err != nil {
		return nil, err
	}
	r.logger.Info("stored new token", "provider", p, "refreshable", tok.CanRefresh())
	return tok, nil
}

// Logout deletes the provider's token.
func (r *Refresher) Logout(ctx context.Context, p Provider) error {
	return r.store.Delete(ctx, p)
}

// Status summarizes a provider's credential state without refreshing anything.
type Status struct {
	Provider    Provider  `json:"provider"`
	Configured  bool      `json:"configured"`
	Connected   bool      `json:"connected"`
	Refreshable bool      `json:"refreshable"`
	Expired     bool      `json:"expired"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
}

// Status reports whether p has credentials and a usable token.
func (r *Refresher) Status(ctx context.Context, p Provider) (Status, error) {
	st := Status{Provider: p, Configured: r.Configured(p)}

	tok, err := r.store.Load(ctx, p)
	if err != nil {
		return st, err
	}
	if tok == nil {
		return st, nil
	}

	st.Refreshable = tok.CanRefresh()
	st.ExpiresAt = tok.Expiry()
	st.Expired = tok.Expiring(r.now(), 0)
	st.Connected = !st.Expired || st.Refreshable
	return st, nil
}

// isPermanentRefreshError reports whether a refresh failure needs a new authorization.
func isPermanentRefreshError(err error) bool {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return false
	}
	switch rErr.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	return false
}
