package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/plsync/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	DefaultTimezone    = "Asia/Taipei"
	DefaultTargetLimit = 10
)

// Config represents the application configuration loaded from a TOML or YAML file.
type Config struct {
	ReferenceTimezone string                  `toml:"reference_timezone" yaml:"reference_timezone"`
	YouTube           YouTubeConfig           `toml:"youtube" yaml:"youtube"`
	Database          DatabaseConfig          `toml:"database" yaml:"database"`
	Retry             RetryConfig             `toml:"retry" yaml:"retry"`
	Pacing            PacingConfig            `toml:"pacing" yaml:"pacing"`
	Log               LogConfig               `toml:"log" yaml:"log"`
	Targets           []models.PlaylistTarget `toml:"targets" yaml:"targets"`
}

// YouTubeConfig contains YouTube Data API endpoints and OAuth2 credentials.
type YouTubeConfig struct {
	BaseURL      string `toml:"base_url" yaml:"base_url"`
	TokenURL     string `toml:"token_url" yaml:"token_url"`
	ClientID     string `toml:"client_id" yaml:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret"`
	RefreshToken string `toml:"refresh_token" yaml:"refresh_token"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" yaml:"path"`
	MaxOpenConns int    `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns" yaml:"max_idle_conns"`
}

// RetryConfig controls the backoff applied to every remote call.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts" yaml:"max_attempts"`
	BaseDelay   Duration `toml:"base_delay" yaml:"base_delay"`
	MaxDelay    Duration `toml:"max_delay" yaml:"max_delay"`
}

// PacingConfig holds the fixed delays between consecutive remote calls.
type PacingConfig struct {
	Mutation Duration `toml:"mutation" yaml:"mutation"`
	ListPage Duration `toml:"list_page" yaml:"list_page"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Duration is a [time.Duration] written as a string ("300ms", "1s") in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a configuration file from the specified path.
//
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
// Defaults are applied and the result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = toml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyDefaults()
	return &config
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

// ApplyDefaults fills zero values with the built-in defaults.
func (c *Config) ApplyDefaults() {
	if c.ReferenceTimezone == "" {
		c.ReferenceTimezone = DefaultTimezone
	}
	if c.YouTube.BaseURL == "" {
		c.YouTube.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	if c.YouTube.TokenURL == "" {
		c.YouTube.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./plsync.db"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.BaseDelay.Duration <= 0 {
		c.Retry.BaseDelay.Duration = time.Second
	}
	// Zero means unset; a negative pacing delay disables pacing.
	if c.Pacing.Mutation.Duration == 0 {
		c.Pacing.Mutation.Duration = 300 * time.Millisecond
	}
	if c.Pacing.ListPage.Duration == 0 {
		c.Pacing.ListPage.Duration = 50 * time.Millisecond
	}

	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Mode == "" {
			t.Mode = models.UnorderedDiff
		}
		if t.Limit == 0 {
			t.Limit = DefaultTargetLimit
		}
		if t.Name == "" {
			t.Name = t.Kind
		}
		if t.Schedule != nil && t.Schedule.Timezone == "" {
			t.Schedule.Timezone = c.ReferenceTimezone
		}
	}
}

// KindRecent is the ranking kind that spans every kind and is only defined over a date window.
const KindRecent = "recent"

// Validate reports configuration problems that must be fixed before any remote call.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.ReferenceTimezone); err != nil {
		return fmt.Errorf("%w: reference_timezone %q: %v", ErrInvalidConfig, c.ReferenceTimezone, err)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no targets configured", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for _, t := range c.Targets {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if t.Schedule != nil {
			if _, err := t.Schedule.Bounds(); err != nil {
				return fmt.Errorf("%w: target %q: %v", ErrInvalidConfig, t.Label(), err)
			}
		}
		if t.Kind == KindRecent && !t.UseDateWindow {
			return fmt.Errorf("%w: target %q: kind %q requires use_date_window", ErrInvalidConfig, t.Label(), KindRecent)
		}
		if _, dup := seen[t.Label()]; dup {
			return fmt.Errorf("%w: duplicate target name %q", ErrInvalidConfig, t.Label())
		}
		seen[t.Label()] = struct{}{}
	}

	return nil
}

// Target returns the configured target with the given name.
func (c *Config) Target(name string) (models.PlaylistTarget, bool) {
	for _, t := range c.Targets {
		if t.Label() == name {
			return t, true
		}
	}
	return models.PlaylistTarget{}, false
}
