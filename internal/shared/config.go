package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables holding the OAuth client pair.
const (
	EnvClientID     = "ClientID"
	EnvClientSecret = "Client_Secret"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Paths   PathsConfig   `toml:"paths"`
	Catalog CatalogConfig `toml:"catalog"`
	Stream  StreamConfig  `toml:"stream"`
	Server  ServerConfig  `toml:"server"`
	OAuth   OAuthConfig   `toml:"-"`
}

// PathsConfig locates the on-disk credential artifacts.
type PathsConfig struct {
	BaseDir    string `toml:"base_dir"`
	CookieFile string `toml:"cookie_file"`
	OAuthFile  string `toml:"oauth_file"`
	EnvFile    string `toml:"env_file"`
}

// CatalogConfig configures the ytmusicapi proxy client.
type CatalogConfig struct {
	ProxyURL  string  `toml:"proxy_url"`
	Language  string  `toml:"language"`
	Location  string  `toml:"location"`
	RateLimit float64 `toml:"rate_limit"`
	Retries   int     `toml:"retries"`
}

// StreamConfig configures stream URL resolution and caching.
type StreamConfig struct {
	Format          string `toml:"format"`
	CacheSize       int64  `toml:"cache_size"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	Database        string `toml:"database"`
}

// ServerConfig configures the stdio dispatcher.
type ServerConfig struct {
	MaxInFlight  int    `toml:"max_in_flight"`
	LogLevel     string `toml:"log_level"`
	MaxLineBytes int    `toml:"max_line_bytes"`
}

// OAuthConfig holds the OAuth client pair read from the environment.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
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

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
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

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Catalog.ProxyURL == "":
		return fmt.Errorf("%w: catalog.proxy_url is empty", ErrInvalidConfig)
	case c.Catalog.Language == "" || c.Catalog.Location == "":
		return fmt.Errorf("%w: catalog.language and catalog.location are required", ErrInvalidConfig)
	case c.Catalog.RateLimit < 0:
		return fmt.Errorf("%w: catalog.rate_limit must not be negative", ErrInvalidConfig)
	case c.Catalog.Retries < 0:
		return fmt.Errorf("%w: catalog.retries must not be negative", ErrInvalidConfig)
	case c.Server.MaxInFlight < 0:
		return fmt.Errorf("%w: server.max_in_flight must not be negative", ErrInvalidConfig)
	case c.Paths.CookieFile == "" || c.Paths.OAuthFile == "":
		return fmt.Errorf("%w: paths.cookie_file and paths.oauth_file are required", ErrInvalidConfig)
	}
	return nil
}

// LoadEnv loads the .env file next to the credentials (a missing file is fine) and reads the OAuth client pair.
//
// Variables already present in the process environment win over the file.
func (c *Config) LoadEnv() error {
	envPath := c.resolve(c.Paths.EnvFile)
	if c.Paths.EnvFile != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	c.OAuth = OAuthConfig{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
	return nil
}

// CookiePath is the cookie-based credential file (browser.json).
func (c *Config) CookiePath() string { return c.resolve(c.Paths.CookieFile) }

// OAuthPath is the oauth-token credential file (oauth.json).
func (c *Config) OAuthPath() string { return c.resolve(c.Paths.OAuthFile) }

// DatabasePath is the stream URL store, or "" when persistence is disabled.
func (c *Config) DatabasePath() string {
	if c.Stream.Database == "" || c.Stream.Database == ":memory:" {
		return c.Stream.Database
	}
	return c.resolve(c.Stream.Database)
}

// StreamTTL is the fallback lifetime of a resolved stream URL.
func (c *Config) StreamTTL() time.Duration {
	if c.Stream.CacheTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Stream.CacheTTLMinutes) * time.Minute
}

func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	base := c.Paths.BaseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, name)
}
