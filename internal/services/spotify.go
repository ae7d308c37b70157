// Spotify Web API player client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/homeboard/internal/cache"
	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track, or an episode when playing a podcast.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyDevice represents a Spotify Connect device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

// SpotifyPlaybackState is the response of GET /me/player.
type SpotifyPlaybackState struct {
	Device       *SpotifyDevice `json:"device"`
	IsPlaying    bool           `json:"is_playing"`
	ProgressMS   int            `json:"progress_ms"`
	ShuffleState bool           `json:"shuffle_state"`
	RepeatState  string         `json:"repeat_state"`
	Item         *SpotifyTrack  `json:"item"`
}

type spotifyDevices struct {
	Devices []SpotifyDevice `json:"devices"`
}

// PlayerAction is a transport control exposed at /api/spotify/player/{action}.
type PlayerAction string

const (
	ActionPlay     PlayerAction = "play"
	ActionPause    PlayerAction = "pause"
	ActionNext     PlayerAction = "next"
	ActionPrevious PlayerAction = "previous"
)

// SpotifyService reads and controls the Spotify player.
//
// Reads degrade to a "not configured" or "not connected" [models.Playback];
// controls return [shared.ErrNotConfigured] or [shared.ErrNotAuthenticated].
type SpotifyService struct {
	client     *Client
	tokens     TokenSource
	cache      *cache.Cache
	configured bool
	logger     *log.Logger
}

// SpotifyOpts contains dependencies for [NewSpotifyService].
type SpotifyOpts struct {
	Config  shared.SpotifyConfig
	Tokens  TokenSource
	Cache   *cache.Cache
	Client  *Client
	Timeout time.Duration
	Logger  *log.Logger
	BaseURL string
}

func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewClient(ClientOpts{
			Name:      "spotify",
			BaseURL:   cmp.Or(opts.BaseURL, spotifyBaseURL),
			RateLimit: 10,
			Burst:     5,
			Logger:    opts.Logger,
			Timeout:   opts.Timeout,
		})
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil)
	}

	return &SpotifyService{
		client:     opts.Client,
		tokens:     opts.Tokens,
		cache:      opts.Cache,
		configured: opts.Config.Configured(),
		logger:     opts.Logger.With("component", "spotify"),
	}
}

func (s *SpotifyService) Name() string     { return "Spotify" }
func (s *SpotifyService) Configured() bool { return s.configured }

// token returns an access token for explicit actions.
func (s *SpotifyService) token(ctx context.Context) (string, error) {
	if !s.configured {
		return "", fmt.Errorf("%w: spotify", shared.ErrNotConfigured)
	}
	return accessToken(ctx, s.tokens, credentials.Spotify)
}

// Playback returns the current player state. It only errors on upstream failures.
func (s *SpotifyService) Playback(ctx context.Context) (models.Playback, error) {
	if !s.configured {
		return models.Playback{}, nil
	}

	token, err := accessToken(ctx, s.tokens, credentials.Spotify)
	if err != nil {
		return models.Playback{Configured: true}, nil
	}

	playback, err := cache.Fetch(ctx, s.cache, cache.SpotifyPlayerKey, cache.SpotifyTTL, func(ctx context.Context) (models.Playback, error) {
		var state SpotifyPlaybackState
		if err := s.client.do(ctx, request{path: "/me/player", query: url.Values{"additional_types": {"episode"}}, bearer: token}, &state); err != nil {
			return models.Playback{}, err
		}
		return toPlayback(state), nil
	})
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return models.Playback{Configured: true}, nil
	}
	return playback, err
}

func toPlayback(state SpotifyPlaybackState) models.Playback {
	p := models.Playback{
		Configured: true,
		Connected:  true,
		IsPlaying:  state.IsPlaying,
		ProgressMs: state.ProgressMS,
		Shuffle:    state.ShuffleState,
		Repeat:     state.RepeatState,
	}

	if state.Device != nil {
		d := toDevice(*state.Device)
		p.Device = &d
	}

	if item := state.Item; item != nil {
		p.Track = item.Name
		p.Album = item.Album.Name
		p.DurationMs = item.DurationMS

		names := make([]string, 0, len(item.Artists))
		for _, a := range item.Artists {
			names = append(names, a.Name)
		}
		p.Artist = strings.Join(names, ", ")

		if len(item.Album.Images) > 0 {
			p.AlbumArt = item.Album.Images[0].URL
		}
	}
	return p
}

func toDevice(d SpotifyDevice) models.Device {
	out := models.Device{ID: d.ID, Name: d.Name, Type: d.Type, IsActive: d.IsActive}
	if d.VolumePercent != nil {
		out.VolumePercent = *d.VolumePercent
	}
	return out
}

// Devices lists available Spotify Connect devices.
func (s *SpotifyService) Devices(ctx context.Context) ([]models.Device, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	return cache.Fetch(ctx, s.cache, cache.SpotifyDevicesKey, cache.SpotifyTTL, func(ctx context.Context) ([]models.Device, error) {
		var resp spotifyDevices
		if err := s.client.do(ctx, request{path: "/me/player/devices", bearer: token}, &resp); err != nil {
			return nil, err
		}

		devices := make([]models.Device, 0, len(resp.Devices))
		for _, d := range resp.Devices {
			devices = append(devices, toDevice(d))
		}
		return devices, nil
	})
}

// control performs a player command and drops cached player state.
func (s *SpotifyService) control(ctx context.Context, method, path string, query url.Values, body any) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	err = s.client.do(ctx, request{method: method, path: path, query: query, body: body, bearer: token}, nil)
	s.cache.Invalidate(cache.SpotifyControl)
	if err != nil {
		return err
	}
	s.logger.Debug("player command", "path", path)
	return nil
}

// Control runs a transport action.
func (s *SpotifyService) Control(ctx context.Context, action PlayerAction) error {
	switch action {
	case ActionPlay:
		return s.control(ctx, http.MethodPut, "/me/player/play", nil, nil)
	case ActionPause:
		return s.control(ctx, http.MethodPut, "/me/player/pause", nil, nil)
	case ActionNext:
		return s.control(ctx, http.MethodPost, "/me/player/next", nil, nil)
	case ActionPrevious:
		return s.control(ctx, http.MethodPost, "/me/player/previous", nil, nil)
	default:
		return fmt.Errorf("%w: unknown player action %q", shared.ErrInvalidInput, action)
	}
}

func (s *SpotifyService) Play(ctx context.Context) error     { return s.Control(ctx, ActionPlay) }
func (s *SpotifyService) Pause(ctx context.Context) error    { return s.Control(ctx, ActionPause) }
func (s *SpotifyService) Next(ctx context.Context) error     { return s.Control(ctx, ActionNext) }
func (s *SpotifyService) Previous(ctx context.Context) error { return s.Control(ctx, ActionPrevious) }

// SetVolume sets the active device's volume, 0 through 100.
func (s *SpotifyService) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100, got %d", shared.ErrInvalidInput, percent)
	}
	return s.control(ctx, http.MethodPut, "/me/player/volume", url.Values{"volume_percent": {strconv.Itoa(percent)}}, nil)
}

// Transfer moves playback to deviceID, starting it when play is true.
func (s *SpotifyService) Transfer(ctx context.Context, deviceID string, play bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", shared.ErrInvalidInput)
	}
	return s.control(ctx, http.MethodPut, "/me/player", nil, map[string]any{"device_ids": []string{deviceID}, "play": play})
}
