package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML (or YAML) file.
type Config struct {
	Server        ServerConfig        `toml:"server" yaml:"server"`
	Storage       StorageConfig       `toml:"storage" yaml:"storage"`
	Log           LogConfig           `toml:"log" yaml:"log"`
	Google        GoogleConfig        `toml:"google" yaml:"google"`
	Spotify       SpotifyConfig       `toml:"spotify" yaml:"spotify"`
	HomeAssistant HomeAssistantConfig `toml:"home_assistant" yaml:"home_assistant"`
	Mealie        MealieConfig        `toml:"mealie" yaml:"mealie"`
	Weather       WeatherConfig       `toml:"weather" yaml:"weather"`
	Sports        SportsConfig        `toml:"sports" yaml:"sports"`
	Photos        PhotosConfig        `toml:"photos" yaml:"photos"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string `toml:"host" yaml:"host"`
	Port           int    `toml:"port" yaml:"port"`
	PublicURL      string `toml:"public_url" yaml:"public_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the externally reachable URL of the server.
func (s ServerConfig) BaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimRight(s.PublicURL, "/")
	}
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// Timeout returns the upstream HTTP client timeout.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StorageConfig selects the key-value backend for tokens, settings and local content.
type StorageConfig struct {
	Backend     string `toml:"backend" yaml:"backend"` // file, sqlite or redis
	DataDir     string `toml:"data_dir" yaml:"data_dir"`
	SQLitePath  string `toml:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr   string `toml:"redis_addr" yaml:"redis_addr"`
	RedisDB     int    `toml:"redis_db" yaml:"redis_db"`
	RedisPrefix string `toml:"redis_prefix" yaml:"redis_prefix"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // auto, text, json, logfmt
}

// GoogleConfig contains Google OAuth credentials and calendar selection.
type GoogleConfig struct {
	ClientID     string   `toml:"client_id" yaml:"client_id"`
	ClientSecret string   `toml:"client_secret" yaml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri" yaml:"redirect_uri"`
	CalendarIDs  []string `toml:"calendar_ids" yaml:"calendar_ids"`
}

// Configured reports whether OAuth client credentials are present.
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" yaml:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri" yaml:"redirect_uri"`
}

// Configured reports whether OAuth client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// HomeAssistantConfig contains the Home Assistant base URL and long-lived access token.
type HomeAssistantConfig struct {
	URL   string `toml:"url" yaml:"url"`
	Token string `toml:"token" yaml:"token"`
}

func (h HomeAssistantConfig) Configured() bool {
	return h.URL != "" && h.Token != ""
}

// MealieConfig contains the Mealie base URL and API token.
type MealieConfig struct {
	BaseURL string `toml:"base_url" yaml:"base_url"`
	Token   string `toml:"token" yaml:"token"`
}

func (m MealieConfig) Configured() bool {
	return m.BaseURL != "" && m.Token != ""
}

// WeatherConfig contains OpenWeather settings.
type WeatherConfig struct {
	APIKey    string  `toml:"api_key" yaml:"api_key"`
	Latitude  float64 `toml:"latitude" yaml:"latitude"`
	Longitude float64 `toml:"longitude" yaml:"longitude"`
	Units     string  `toml:"units" yaml:"units"`
	Location  string  `toml:"location" yaml:"location"`
}

func (w WeatherConfig) Configured() bool {
	return w.APIKey != ""
}

// SportsConfig lists the ESPN teams shown on the dashboard.
type SportsConfig struct {
	Teams []TeamConfig `toml:"teams" yaml:"teams"`
}

// TeamConfig identifies a team on ESPN's site API, e.g. football/nfl/kc.
type TeamConfig struct {
	Sport  string `toml:"sport" yaml:"sport"`
	League string `toml:"league" yaml:"league"`
	Team   string `toml:"team" yaml:"team"`
}

// PhotosConfig contains Google Photos picker and sync settings.
type PhotosConfig struct {
	Dir       string `toml:"dir" yaml:"dir"`
	MaxPages  int    `toml:"max_pages" yaml:"max_pages"`
	MaxWidth  int    `toml:"max_width" yaml:"max_width"`
	MaxHeight int    `toml:"max_height" yaml:"max_height"`
	Workers   int    `toml:"workers" yaml:"workers"`
}

// LoadConfig reads and parses a configuration file from the specified path.
//
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
// Unset fields keep the embedded defaults and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides provider credentials and server settings from the environment.
//
// lookup is usually [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	str("GOOGLE_REDIRECT_URI", &c.Google.RedirectURI)
	str("SPOTIFY_CLIENT_ID", &c.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret)
	str("SPOTIFY_REDIRECT_URI", &c.Spotify.RedirectURI)
	str("OPENWEATHER_API_KEY", &c.Weather.APIKey)
	str("MEALIE_BASE_URL", &c.Mealie.BaseURL)
	str("MEALIE_API_TOKEN", &c.Mealie.Token)
	str("HOME_ASSISTANT_URL", &c.HomeAssistant.URL)
	str("HOME_ASSISTANT_TOKEN", &c.HomeAssistant.Token)
	str("HOMEBOARD_DATA_DIR", &c.Storage.DataDir)

	if v, ok := lookup("HOMEBOARD_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}

// PhotoDir returns the directory synced photos are written to.
func (c *Config) PhotoDir() string {
	if c.Photos.Dir != "" {
		return c.Photos.Dir
	}
	return filepath.Join(c.Storage.DataDir, "photos")
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
