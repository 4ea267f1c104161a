// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceTypeFile    = "file"
	SourceTypeSpotify = "spotify"
	SourceTypeLastFm  = "lastfm"
)

// Persistence backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Admin       AdminConfig       `yaml:"admin"`
	Thumbnail   ThumbnailConfig   `yaml:"thumbnail"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Sources     []SourceConfig    `yaml:"sources" validate:"dive"`
	Spotify     SpotifyConfig     `yaml:"spotify"`
	LastFm      LastFmConfig      `yaml:"lastfm"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
// An empty token leaves mutating RPCs unauthenticated.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// ThumbnailConfig represents thumbnail derivation settings.
type ThumbnailConfig struct {
	BaseURL string `yaml:"base_url" default:"https://ytmdl-music-server.vercel.app/api/thumbnail" validate:"url"`
}

// PlaybackConfig represents playback store settings.
type PlaybackConfig struct {
	Seed             int64  `yaml:"seed"`              // 0 = random seed
	FallbackPlaylist string `yaml:"fallback_playlist"` // selected after deleting the current playlist
	InitialPlaylist  string `yaml:"initial_playlist"`  // selected when no snapshot exists
}

// PersistenceConfig represents snapshot persistence configuration.
type PersistenceConfig struct {
	Backend string                 `yaml:"backend" default:"file" validate:"oneof=file redis none"`
	File    FilePersistenceConfig  `yaml:"file"`
	Redis   RedisPersistenceConfig `yaml:"redis"`
}

// FilePersistenceConfig represents the JSON file backend.
type FilePersistenceConfig struct {
	Path string `yaml:"path" default:"data/state.json"`
}

// RedisPersistenceConfig represents the Redis backend.
type RedisPersistenceConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Key      string `yaml:"key" default:"ytmdl"`
}

// SourceConfig represents a single playlist source.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=file spotify lastfm"`
	Settings map[string]any `yaml:"settings"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// LastFmConfig represents Last.fm API configuration.
type LastFmConfig struct {
	APIKey string `yaml:"api_key"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.LastFm.APIKey = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Persistence.Redis.Password = v
	}
	if v := os.Getenv("PLAYBACK_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Playback.Seed = seed
		}
	}
}

// HasSource reports whether a source of the given type is configured.
func (c *Config) HasSource(sourceType string) bool {
	for _, s := range c.Sources {
		if s.Type == sourceType {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateCredentials(); err != nil {
		return err
	}

	return nil
}

// validateCredentials checks that every configured remote source has the
// credentials it needs.
func (c *Config) validateCredentials() error {
	if c.HasSource(SourceTypeSpotify) {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify source requires spotify.client_id, spotify.client_secret and spotify.refresh_token")
		}
	}

	if c.HasSource(SourceTypeLastFm) && c.LastFm.APIKey == "" {
		return errors.New("lastfm source requires lastfm.api_key")
	}

	return nil
}
