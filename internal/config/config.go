// Package config handles bibp configuration: a YAML file under
// XDG_CONFIG_HOME, an optional .env file, and BIBP_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matsen/bibproxy/internal/browser"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "bibp"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "BIBP_"
)

// Config holds every setting the CLI and server read.
type Config struct {
	Origin         string        `yaml:"origin"`          // Scheme and host of the bibliography proxy
	ElementID      string        `yaml:"element_id"`      // Page region replaced by fetch
	DefaultAuthor  string        `yaml:"default_author"`  // Identifier used when fetch gets no argument
	Listen         string        `yaml:"listen"`          // Server listen address
	BibPath        string        `yaml:"bib_path"`        // BibTeX file served by the proxy
	DBPath         string        `yaml:"db_path"`         // SQLite database path
	Browser        string        `yaml:"browser"`         // system, firefox, chromium, safari
	RateLimit      float64       `yaml:"rate_limit"`      // Requests per second per client; 0 disables
	RateBurst      int           `yaml:"rate_burst"`
	TrustedProxies []string      `yaml:"trusted_proxies"` // Peers whose X-Forwarded-For is honored (CIDR or address)
	LogLevel       string        `yaml:"log_level"`       // debug, info, warn, error
	Timeout        time.Duration `yaml:"timeout"`         // HTTP client timeout
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Origin:        "http://pleiad.dcc.uchile.cl",
		ElementID:     "bibtex",
		DefaultAuthor: "tod",
		Listen:        ":8080",
		BibPath:       "publications.bib",
		DBPath:        ":memory:",
		Browser:       "system",
		RateLimit:     10,
		RateBurst:     20,
		LogLevel:      "info",
		Timeout:       30 * time.Second,
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibp/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load builds the configuration from defaults, the file at path (skipped if
// it does not exist; an empty path means Path()), a .env file in the working
// directory, and BIBP_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.BibPath = ExpandPath(cfg.BibPath)
	cfg.DBPath = ExpandPath(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	textVars := map[string]*string{
		"ORIGIN":         &c.Origin,
		"ELEMENT_ID":     &c.ElementID,
		"DEFAULT_AUTHOR": &c.DefaultAuthor,
		"LISTEN":         &c.Listen,
		"BIB_PATH":       &c.BibPath,
		"DB_PATH":        &c.DBPath,
		"BROWSER":        &c.Browser,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for name, dst := range textVars {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sRATE_LIMIT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.RateLimit = f
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sRATE_BURST: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.RateBurst = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "TRUSTED_PROXIES"); ok {
		c.TrustedProxies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.TrustedProxies = append(c.TrustedProxies, p)
			}
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sTIMEOUT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	if c.Origin == "" {
		return fmt.Errorf("%w: origin is empty", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Origin, "http://") && !strings.HasPrefix(c.Origin, "https://") {
		return fmt.Errorf("%w: origin %q must start with http:// or https://", ErrInvalidConfig, c.Origin)
	}
	if c.ElementID == "" {
		return fmt.Errorf("%w: element_id is empty", ErrInvalidConfig)
	}
	if err := browser.ValidateBrowser(c.Browser); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%w: rate_limit and rate_burst must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return fmt.Errorf("%w: rate_burst must be positive when rate_limit is set", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.TrustedPrefixes(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// TrustedPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (c *Config) TrustedPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, v := range c.TrustedProxies {
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: trusted_proxies: %v", ErrInvalidConfig, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted_proxies: %v", ErrInvalidConfig, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ParseLevel converts a log_level value to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: log_level %q (valid: debug, info, warn, error)", ErrInvalidConfig, level)
	}
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
