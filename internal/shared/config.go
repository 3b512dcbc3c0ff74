package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Player modes
const (
	ModePoll = "poll"
	ModePush = "push"
)

// Refresh strategies
const (
	RefreshBackend = "backend"
	RefreshOAuth   = "oauth"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Player      PlayerConfig      `toml:"player"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the shape expected by services.NewOAuthConfig.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// APIConfig locates the clouder backend (token refresh, category metadata) and the Spotify Web API.
type APIConfig struct {
	BackendURL string `toml:"backend_url"`
	SpotifyURL string `toml:"spotify_url"`
	Refresh    string `toml:"refresh"` // backend or oauth
}

// PlayerConfig selects the playback state source and its timings.
type PlayerConfig struct {
	Mode                string        `toml:"mode"` // poll or push
	PollInterval        time.Duration `toml:"poll_interval"`
	SettleDelay         time.Duration `toml:"settle_delay"`
	SeekStep            time.Duration `toml:"seek_step"`
	InterpolateInterval time.Duration `toml:"interpolate_interval"`
	DeviceURL           string        `toml:"device_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local control API.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls log verbosity and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Validate reports the first setting that cannot drive the player or session.
func (c *Config) Validate() error {
	switch c.Player.Mode {
	case ModePoll, ModePush:
	default:
		return fmt.Errorf("%w: player.mode must be %q or %q, got %q", ErrInvalidConfig, ModePoll, ModePush, c.Player.Mode)
	}

	switch c.API.Refresh {
	case RefreshBackend, RefreshOAuth:
	default:
		return fmt.Errorf("%w: api.refresh must be %q or %q, got %q", ErrInvalidConfig, RefreshBackend, RefreshOAuth, c.API.Refresh)
	}

	if c.Player.PollInterval <= 0 || c.Player.SettleDelay <= 0 || c.Player.SeekStep <= 0 || c.Player.InterpolateInterval <= 0 {
		return fmt.Errorf("%w: player intervals must be positive", ErrInvalidConfig)
	}

	if c.Player.Mode == ModePush && c.Player.DeviceURL == "" {
		return fmt.Errorf("%w: player.device_url is required in push mode", ErrInvalidConfig)
	}

	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
