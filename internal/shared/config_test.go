package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Storage.DataDir != "./data" {
			t.Errorf("expected data dir ./data, got %s", config.Storage.DataDir)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Storage.Backend != "file" {
			t.Errorf("expected file storage backend, got %s", config.Storage.Backend)
		}

		if len(config.Google.CalendarIDs) != 1 || config.Google.CalendarIDs[0] != "primary" {
			t.Errorf("expected primary calendar, got %v", config.Google.CalendarIDs)
		}

		if config.Google.Configured() {
			t.Error("default config should not have google credentials")
		}

		if config.Photos.MaxPages != 50 {
			t.Errorf("expected max pages 50, got %d", config.Photos.MaxPages)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Storage.DataDir != defaultConfig.Storage.DataDir {
			t.Errorf("created config data dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "127.0.0.1"
port = 8080

[storage]
backend = "sqlite"
data_dir = "/var/lib/homeboard"

[google]
client_id = "test_client_id"
client_secret = "test_secret"
calendar_ids = ["primary", "family@group.calendar.google.com"]

[[sports.teams]]
sport = "football"
league = "nfl"
team = "kc"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Storage.Backend != "sqlite" {
			t.Errorf("expected sqlite backend, got %s", config.Storage.Backend)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if !config.Google.Configured() {
			t.Error("expected google to be configured")
		}

		if len(config.Google.CalendarIDs) != 2 {
			t.Errorf("expected 2 calendar ids, got %d", len(config.Google.CalendarIDs))
		}

		if len(config.Sports.Teams) != 1 || config.Sports.Teams[0].Team != "kc" {
			t.Errorf("expected one sports team kc, got %+v", config.Sports.Teams)
		}

		if config.Weather.Units != "imperial" {
			t.Errorf("expected unset weather units to keep default, got %s", config.Weather.Units)
		}
	})

	t.Run("LoadConfig YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		testConfig := `server:
  port: 9090
home_assistant:
  url: http://ha.local:8123
  token: secret
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 9090 {
			t.Errorf("expected server port 9090, got %d", config.Server.Port)
		}

		if !config.HomeAssistant.Configured() {
			t.Error("expected home assistant to be configured")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"GOOGLE_CLIENT_ID":     "env-id",
			"GOOGLE_CLIENT_SECRET": "env-secret",
			"OPENWEATHER_API_KEY":  "weather-key",
			"MEALIE_BASE_URL":      "http://mealie.local",
			"MEALIE_API_TOKEN":     "mealie-token",
			"HOMEBOARD_PORT":       "4242",
		}
		lookup := func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}

		config := DefaultConfig()
		config.ApplyEnv(lookup)

		if config.Google.ClientID != "env-id" || !config.Google.Configured() {
			t.Errorf("expected google credentials from env, got %+v", config.Google)
		}
		if !config.Weather.Configured() {
			t.Error("expected weather to be configured from env")
		}
		if !config.Mealie.Configured() {
			t.Error("expected mealie to be configured from env")
		}
		if config.HomeAssistant.Configured() {
			t.Error("home assistant should remain unconfigured")
		}
		if config.Server.Port != 4242 {
			t.Errorf("expected port 4242, got %d", config.Server.Port)
		}
	})

	t.Run("BaseURL", func(t *testing.T) {
		s := ServerConfig{Host: "0.0.0.0", Port: 3000}
		if got := s.BaseURL(); got != "http://localhost:3000" {
			t.Errorf("BaseURL() = %s, want http://localhost:3000", got)
		}

		s.PublicURL = "https://board.example.com/"
		if got := s.BaseURL(); got != "https://board.example.com" {
			t.Errorf("BaseURL() = %s, want https://board.example.com", got)
		}
	})
}
