package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./clouder.db" {
			t.Errorf("expected database path ./clouder.db, got %s", config.Database.Path)
		}

		if config.Player.Mode != ModePoll {
			t.Errorf("expected poll mode, got %s", config.Player.Mode)
		}

		if config.Player.PollInterval != 2*time.Second {
			t.Errorf("expected poll interval 2s, got %v", config.Player.PollInterval)
		}

		if config.Player.SettleDelay != 500*time.Millisecond {
			t.Errorf("expected settle delay 500ms, got %v", config.Player.SettleDelay)
		}

		if config.Player.SeekStep != 10*time.Second {
			t.Errorf("expected seek step 10s, got %v", config.Player.SeekStep)
		}

		if config.API.Refresh != RefreshBackend {
			t.Errorf("expected backend refresh, got %s", config.API.Refresh)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{"unknown mode", func(c *Config) { c.Player.Mode = "stream" }},
			{"unknown refresh", func(c *Config) { c.API.Refresh = "magic" }},
			{"zero poll interval", func(c *Config) { c.Player.PollInterval = 0 }},
			{"push without device", func(c *Config) { c.Player.Mode = ModePush; c.Player.DeviceURL = "" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[player]
mode = "push"
device_url = "ws://127.0.0.1:9000/events"
poll_interval = "5s"

[server]
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Player.Mode != ModePush {
			t.Errorf("expected push mode, got %s", config.Player.Mode)
		}

		if config.Player.PollInterval != 5*time.Second {
			t.Errorf("expected poll interval 5s, got %v", config.Player.PollInterval)
		}

		if config.Player.SettleDelay != 500*time.Millisecond {
			t.Errorf("expected default settle delay to survive, got %v", config.Player.SettleDelay)
		}

		if config.Server.Addr() != "127.0.0.1:8080" {
			t.Errorf("expected addr 127.0.0.1:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.Map()["client_id"] != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
