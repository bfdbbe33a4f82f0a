// Package config handles TOML-based configuration loading and validation.
// The session cookie is never compiled in: it comes from the config file,
// the HYPECAST_COOKIE environment variable (optionally via .env), or a
// cookie file that can be re-read at runtime.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables consulted after the config file.
const (
	EnvCookie   = "HYPECAST_COOKIE"
	EnvLogLevel = "HYPECAST_LOG_LEVEL"
)

// ErrNoCredential is returned when no session cookie could be found.
var ErrNoCredential = errors.New("no session cookie configured")

// Config holds all application configuration.
type Config struct {
	LogLevel string `toml:"log_level"`
	History  bool   `toml:"history"`

	Hypem  HypemConfig  `toml:"hypem"`
	Auth   AuthConfig   `toml:"auth"`
	HTTP   HTTPConfig   `toml:"http"`
	Scrape ScrapeConfig `toml:"scrape"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// HypemConfig holds the upstream endpoints and host classification rules.
type HypemConfig struct {
	TrackURL      string `toml:"track_url"`
	GoURL         string `toml:"go_url"`
	ServeURL      string `toml:"serve_url"`
	PreferredHost string `toml:"preferred_host"`
	NotFoundPath  string `toml:"not_found_path"`
}

// AuthConfig holds the session cookie sources. Cookie wins over CookieFile.
type AuthConfig struct {
	Cookie     string `toml:"cookie"`
	CookieFile string `toml:"cookie_file"`
}

// HTTPConfig tunes the outbound client and batch behaviour.
type HTTPConfig struct {
	Timeout       Duration `toml:"timeout"`
	UserAgent     string   `toml:"user_agent"`
	Concurrency   int      `toml:"concurrency"`
	RatePerSecond float64  `toml:"rate_per_second"`
}

// ScrapeConfig selects how the embedded JSON block is pulled out of the page.
type ScrapeConfig struct {
	Strategy string `toml:"strategy"`
}

// StoreConfig locates the chart database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ServerConfig configures `hypecast serve`.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Duration is a time.Duration that decodes from TOML strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		History:  true,
		Hypem: HypemConfig{
			TrackURL:      "http://hypem.com/track/",
			GoURL:         "http://hypem.com/go/sc/",
			ServeURL:      "http://hypem.com/serve/source/",
			PreferredHost: "soundcloud.com",
			NotFoundPath:  "/not/found",
		},
		HTTP: HTTPConfig{
			Timeout:     Duration{15 * time.Second},
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0",
			Concurrency: 4,
		},
		Scrape: ScrapeConfig{Strategy: "markers"},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
		},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hypecast"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hypecast"), nil
}

// dataDir returns the XDG-compliant data directory.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hypecast"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "hypecast"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults, then applies .env and
// environment overrides. A missing config file yields defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		path = ""
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvCookie)); v != "" {
		c.Auth.Cookie = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"hypem.track_url": c.Hypem.TrackURL,
		"hypem.go_url":    c.Hypem.GoURL,
		"hypem.serve_url": c.Hypem.ServeURL,
	} {
		if err := validateBase(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Hypem.PreferredHost == "" {
		return fmt.Errorf("hypem.preferred_host cannot be empty")
	}
	if c.Hypem.NotFoundPath != "" && !strings.HasPrefix(c.Hypem.NotFoundPath, "/") {
		return fmt.Errorf("hypem.not_found_path must start with /, got %q", c.Hypem.NotFoundPath)
	}

	validStrategies := map[string]bool{"markers": true, "dom": true}
	if !validStrategies[strings.ToLower(c.Scrape.Strategy)] {
		return fmt.Errorf("unsupported scrape strategy %q (valid: markers, dom)", c.Scrape.Strategy)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unsupported log level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.HTTP.Concurrency < 1 {
		return fmt.Errorf("http.concurrency must be at least 1, got %d", c.HTTP.Concurrency)
	}
	if c.HTTP.RatePerSecond < 0 {
		return fmt.Errorf("http.rate_per_second cannot be negative")
	}
	if c.HTTP.Timeout.Duration < 0 {
		return fmt.Errorf("http.timeout cannot be negative")
	}

	return nil
}

func validateBase(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// HistoryPath returns the path to the resolution log.
func HistoryPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.tsv"), nil
}

// StorePath returns the chart database path, defaulting under the data dir.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "charts.db"), nil
}

func expandHome(p string) (string, error) {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		p = filepath.Join(home, p[2:])
	}
	return filepath.Abs(p)
}
