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

// Lock modes for [SearchConfig.LockMode].
const (
	LockModeGlobal   = "global"
	LockModePerQuery = "per_query"
)

// Source kinds for [SourceConfig.Kind].
const (
	SourceKindHTTP    = "http"
	SourceKindSpotify = "spotify"
)

// Duration wraps [time.Duration] so it can be written as "3s" or "300ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Search      SearchConfig      `toml:"search"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Cache       CacheConfig       `toml:"cache"`
	Archive     ArchiveConfig     `toml:"archive"`
	Sources     []SourceConfig    `toml:"sources"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Limits      LimitsConfig      `toml:"limits"`
}

// SearchConfig controls fan-out and its time budgets.
type SearchConfig struct {
	MaxParallelSources   int      `toml:"max_parallel_sources"`
	FastPathTimeout      Duration `toml:"fast_path_timeout"`
	SlowPathTimeout      Duration `toml:"slow_path_timeout"`
	PerSourceTimeout     Duration `toml:"per_source_timeout"`
	StrongMatchThreshold int      `toml:"strong_match_threshold"`
	LockMode             string   `toml:"lock_mode"`
}

// ScoringConfig holds relevance weights. Zero values fall back to the scorer defaults.
type ScoringConfig struct {
	QualityWeighting bool `toml:"quality_weighting"`
	TitleExact       int  `toml:"title_exact"`
	PerformerExact   int  `toml:"performer_exact"`
	Combined         int  `toml:"combined"`
	TitleWord        int  `toml:"title_word"`
	PerformerWord    int  `toml:"performer_word"`
	Completeness     int  `toml:"completeness"`
	MaxQualityBonus  int  `toml:"max_quality_bonus"`
	Penalty          int  `toml:"penalty"`
}

// CacheConfig controls the short-lived query cache.
type CacheConfig struct {
	Enabled  bool     `toml:"enabled"`
	TTL      Duration `toml:"ttl"`
	Capacity int      `toml:"capacity"`
}

// ArchiveConfig controls the store of delivered results.
type ArchiveConfig struct {
	TTL      Duration `toml:"ttl"`
	Capacity int      `toml:"capacity"`
	MinScore int      `toml:"min_score"`
	Persist  bool     `toml:"persist"`
}

// SourceConfig describes one provider.
type SourceConfig struct {
	ID          string `toml:"id"`
	Kind        string `toml:"kind"`
	BaseURL     string `toml:"base_url"`
	Tier        string `toml:"tier"`
	HeadersPath string `toml:"headers_path"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Market       string `toml:"market"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LimitsConfig contains per-user request limits.
type LimitsConfig struct {
	Cooldown Duration `toml:"cooldown"`
}

// Validate rejects configurations the coordinator cannot honour.
func (c *Config) Validate() error {
	s := c.Search
	switch {
	case s.MaxParallelSources <= 0:
		return fmt.Errorf("%w: search.max_parallel_sources must be positive", ErrInvalidConfig)
	case s.FastPathTimeout.Duration <= 0 || s.SlowPathTimeout.Duration <= 0 || s.PerSourceTimeout.Duration <= 0:
		return fmt.Errorf("%w: search timeouts must be positive", ErrInvalidConfig)
	case s.FastPathTimeout.Duration > s.SlowPathTimeout.Duration:
		return fmt.Errorf("%w: search.fast_path_timeout (%s) exceeds slow_path_timeout (%s)",
			ErrInvalidConfig, s.FastPathTimeout, s.SlowPathTimeout)
	case s.LockMode != "" && s.LockMode != LockModeGlobal && s.LockMode != LockModePerQuery:
		return fmt.Errorf("%w: unknown search.lock_mode %q", ErrInvalidConfig, s.LockMode)
	case c.Cache.Enabled && c.Cache.TTL.Duration <= 0:
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidConfig)
	case c.Archive.TTL.Duration <= 0:
		return fmt.Errorf("%w: archive.ttl must be positive", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: sources[%d] has no id", ErrInvalidConfig, i)
		}
		if seen[src.ID] {
			return fmt.Errorf("%w: duplicate source id %q", ErrInvalidConfig, src.ID)
		}
		seen[src.ID] = true

		switch src.Kind {
		case SourceKindHTTP:
			if src.BaseURL == "" {
				return fmt.Errorf("%w: source %q needs base_url", ErrInvalidConfig, src.ID)
			}
		case SourceKindSpotify:
		default:
			return fmt.Errorf("%w: source %q has unknown kind %q", ErrInvalidConfig, src.ID, src.Kind)
		}
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	config.Sources = nil
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}
	if len(config.Sources) == 0 {
		config.Sources = DefaultConfig().Sources
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
