package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Default values, mirrored by default.yaml.
const (
	DefaultNotifTimeout   = 7
	DefaultNotifMaxShow   = 3
	DefaultCheckEvery     = 2
	DefaultRequestTimeout = 10
	DefaultLogLevel       = "info"
)

// ErrNoKey is returned by Get when a dotted key does not resolve.
var ErrNoKey = errors.New("no such config key")

// Config is the read-only preference set loaded once at startup.
type Config struct {
	General General `yaml:"general"`

	// Path is the file the config was loaded from.
	Path string `yaml:"-"`

	// tree holds defaults merged with the user's file for dotted-key lookups.
	tree map[string]any
}

// General holds the keys under "general".
type General struct {
	// Clients lists the enabled sources in polling order.
	Clients []string `yaml:"clients"`

	// NotifTimeout is how long each notification is displayed, in seconds.
	NotifTimeout int `yaml:"notif_timeout"`

	// NotifMaxShow caps notifications shown per client per cycle.
	// -1 means unbounded; 0 is a literal cap.
	NotifMaxShow int `yaml:"notif_max_show"`

	// CheckEvery is the poll interval in minutes.
	CheckEvery int `yaml:"check_every"`

	// RequestTimeout bounds each outbound request, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	LogLevel string `yaml:"log_level"`

	// MetricsFile is where the Prometheus text counters are written.
	// Empty disables the file.
	MetricsFile string `yaml:"metrics_file"`

	// IconsDir optionally holds <icon>.png files.
	IconsDir string `yaml:"icons_dir"`
}

// DisplayTimeout returns NotifTimeout as a duration.
func (g General) DisplayTimeout() time.Duration {
	return time.Duration(g.NotifTimeout) * time.Second
}

// CheckInterval returns CheckEvery as a duration.
func (g General) CheckInterval() time.Duration {
	return time.Duration(g.CheckEvery) * time.Minute
}

// RequestTimeoutDuration returns RequestTimeout as a duration.
func (g General) RequestTimeoutDuration() time.Duration {
	return time.Duration(g.RequestTimeout) * time.Second
}

// DefaultPath returns $XDG_CONFIG_HOME/toasts/config.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(dir, "toasts", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml is invalid: %v", err))
	}
	return cfg
}

// WriteDefault writes the default config file to path, creating parent
// directories and overwriting any existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(path, defaultYAML, 0o644); err != nil {
		return fmt.Errorf("config: write default: %w", err)
	}
	return nil
}

// LoadOrCreate loads path, first writing the default file there if it does
// not exist. created reports whether the file was written.
func LoadOrCreate(path string) (cfg *Config, created bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, false, err
		}
		created = true
	}
	cfg, err = Load(path)
	return cfg, created, err
}

// Load reads and parses the YAML config file at path.
// Keys absent from the file fall back to the embedded defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes data layered over the embedded defaults and validates it.
func Parse(data []byte, path string) (*Config, error) {
	cfg := &Config{Path: path}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		return nil, fmt.Errorf("config: parse defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	tree := map[string]any{}
	if err := yaml.Unmarshal(defaultYAML, &tree); err != nil {
		return nil, fmt.Errorf("config: parse defaults: %w", err)
	}
	user := map[string]any{}
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	merge(tree, user)
	cfg.tree = tree

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Get resolves a dotted key such as "general.check_every" or
// "sites.github.token".
func (c *Config) Get(key string) (any, error) {
	var cur any = c.tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoKey, key)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoKey, key)
		}
	}
	return cur, nil
}

// String resolves key and requires a string value.
func (c *Config) String(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config: %s: want string, got %T", key, v)
	}
	return s, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			merge(dm, sm)
			continue
		}
		dst[k] = v
	}
}

// validate checks value ranges. An empty or unknown client list is left to
// the startup validator, which reports it to the user.
func validate(cfg *Config) error {
	g := cfg.General
	if g.NotifTimeout <= 0 {
		return fmt.Errorf("general.notif_timeout must be positive")
	}
	if g.NotifMaxShow < -1 {
		return fmt.Errorf("general.notif_max_show must be -1 (unbounded) or >= 0, got %d", g.NotifMaxShow)
	}
	if g.CheckEvery <= 0 {
		return fmt.Errorf("general.check_every must be positive")
	}
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("general.request_timeout must be positive")
	}
	switch g.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("general.log_level: unknown level %q", g.LogLevel)
	}
	for i, name := range g.Clients {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("general.clients[%d]: empty client name", i)
		}
	}
	return nil
}
