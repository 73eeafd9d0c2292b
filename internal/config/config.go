// Package config loads gravyprompts settings from a TOML file.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const samplePath = "/home/user/.local/share/gravyprompts/templates.db"

// EnvConfigPath overrides the config file location
const EnvConfigPath = "GRAVYPROMPTS_CONFIG"

type Config struct {
	Debug     bool            `toml:"debug"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Search    SearchConfig    `toml:"search"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

type ServerConfig struct {
	Port         int      `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	CORSOrigin   string   `toml:"cors_origin"`
	UserHeader   string   `toml:"user_header"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type SearchConfig struct {
	DefaultLimit      int      `toml:"default_limit"`
	MaxLimit          int      `toml:"max_limit"`
	MaxFetchesPerPage int      `toml:"max_fetches_per_page"`
	FetchTimeout      Duration `toml:"fetch_timeout"`
	PreviewLength     int      `toml:"preview_length"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

// Duration is a time.Duration written as "5s" in TOML
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the built-in settings
func Default() (*Config, error) {
	dbPath, err := DefaultDBPath()
	if err != nil {
		return nil, err
	}
	c := &Config{Storage: StorageConfig{Path: dbPath}}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{10 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{15 * time.Second}
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "*"
	}
	if c.Server.UserHeader == "" {
		c.Server.UserHeader = "X-User-ID"
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.DefaultLimit <= 0 || c.Search.DefaultLimit > c.Search.MaxLimit {
		c.Search.DefaultLimit = min(20, c.Search.MaxLimit)
	}
	if c.Search.MaxFetchesPerPage <= 0 {
		c.Search.MaxFetchesPerPage = 5
	}
	if c.Search.FetchTimeout.Duration == 0 {
		c.Search.FetchTimeout = Duration{5 * time.Second}
	}
	if c.Search.PreviewLength <= 0 {
		c.Search.PreviewLength = 200
	}
	if c.RateLimit.Burst < 0 {
		c.RateLimit.Burst = 0
	}
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if c.Storage.Path == "" {
		if c.Storage.Path, err = DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	c.applyDefaults()
	return &c, nil
}

// Save writes c as TOML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes c as TOML to w
func (c *Config) Write(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return nil
}

// SaveTemplate writes the commented sample config, pointing storage at c's path
func (c *Config) SaveTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	template := strings.Replace(configTemplate, samplePath, c.Storage.Path, 1)
	return os.WriteFile(path, []byte(template), 0644)
}

// DefaultConfigPath is $GRAVYPROMPTS_CONFIG or ~/.gravyprompts/config.toml
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".gravyprompts", "config.toml"), nil
}

// DefaultDBPath places the database under XDG_DATA_HOME or ~/.local/share
func DefaultDBPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "gravyprompts", "templates.db"), nil
}
