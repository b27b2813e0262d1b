package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Jellyfin JellyfinConfig `toml:"jellyfin"`
	Matching MatchingConfig `toml:"matching"`
	Playlist PlaylistConfig `toml:"playlist"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// JellyfinConfig contains the server address, credentials and HTTP client tuning.
type JellyfinConfig struct {
	URL            string  `toml:"url"`
	Token          string  `toml:"token"`
	User           string  `toml:"user"`
	SkipTLS        bool    `toml:"skip_tls"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Retries        int     `toml:"retries"`
	RetryWaitMS    int     `toml:"retry_wait_ms"`
	RateLimit      float64 `toml:"rate_limit"`
	PageSize       int     `toml:"page_size"`
}

// Timeout returns the configured request timeout. Zero means no timeout.
func (j JellyfinConfig) Timeout() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// RetryWait returns the configured wait between retries.
func (j JellyfinConfig) RetryWait() time.Duration {
	return time.Duration(j.RetryWaitMS) * time.Millisecond
}

// MatchingConfig contains fuzzy matching settings.
type MatchingConfig struct {
	Threshold int  `toml:"threshold"`
	AnyAlbum  bool `toml:"any_album"`
}

// PlaylistConfig contains settings applied to created playlists.
type PlaylistConfig struct {
	Private bool `toml:"private"`
}

// DatabaseConfig contains run history database settings. An empty path disables history.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// Validate checks value ranges that cannot be expressed in TOML.
func (c *Config) Validate() error {
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		return fmt.Errorf("%w: matching.threshold must be between 0 and 100, got %d", ErrInvalidConfig, c.Matching.Threshold)
	}
	if c.Jellyfin.Retries < 0 {
		return fmt.Errorf("%w: jellyfin.retries must not be negative", ErrInvalidConfig)
	}
	if c.Jellyfin.RateLimit < 0 {
		return fmt.Errorf("%w: jellyfin.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Jellyfin.URL != "" && !strings.HasPrefix(c.Jellyfin.URL, "http://") && !strings.HasPrefix(c.Jellyfin.URL, "https://") {
		return fmt.Errorf("%w: jellyfin.url must start with http:// or https://", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
