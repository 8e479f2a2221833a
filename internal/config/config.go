package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config captures the settings the SeriesNet client needs.
type Config struct {
	APIURL         string
	AssetURL       string
	SessionPath    string
	LogFile        string
	LogLevel       string
	StaleTime      time.Duration
	GCTime         time.Duration
	RequestTimeout time.Duration
}

const (
	defaultConfigPath     = "~/.config/seriesnet/config.toml"
	defaultSessionPath    = "~/.config/seriesnet/session.toml"
	defaultLogFile        = "~/.local/state/seriesnet/client.log"
	defaultAPIURL         = "http://127.0.0.1:3000"
	defaultLogLevel       = "info"
	defaultStaleTime      = 30 * time.Second
	defaultGCTime         = 5 * time.Minute
	defaultRequestTimeout = 10 * time.Second
)

// rawConfig is the on-disk shape shared by the TOML and YAML decoders.
type rawConfig struct {
	APIURL         string `toml:"api_url" yaml:"api_url"`
	AssetURL       string `toml:"asset_url" yaml:"asset_url"`
	SessionPath    string `toml:"session_path" yaml:"session_path"`
	LogFile        string `toml:"log_file" yaml:"log_file"`
	LogLevel       string `toml:"log_level" yaml:"log_level"`
	StaleTime      string `toml:"stale_time" yaml:"stale_time"`
	GCTime         string `toml:"gc_time" yaml:"gc_time"`
	RequestTimeout string `toml:"request_timeout" yaml:"request_timeout"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		AssetURL:       defaultAPIURL,
		SessionPath:    mustExpand(defaultSessionPath),
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		StaleTime:      defaultStaleTime,
		GCTime:         defaultGCTime,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load locates and parses the client config, falling back to defaults when
// missing. Files ending in .yaml or .yml are decoded as YAML, anything else as
// TOML. Environment overrides are applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := applyEnvOverrides(&cfg); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.merge(raw); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(raw rawConfig) error {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = v
		c.AssetURL = v
	}
	if v := strings.TrimSpace(raw.AssetURL); v != "" {
		c.AssetURL = v
	}
	if v := strings.TrimSpace(raw.SessionPath); v != "" {
		c.SessionPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"stale_time", raw.StaleTime, &c.StaleTime},
		{"gc_time", raw.GCTime, &c.GCTime},
		{"request_timeout", raw.RequestTimeout, &c.RequestTimeout},
	}
	for _, d := range durations {
		v := strings.TrimSpace(d.value)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse config: invalid %s %q: %w", d.name, v, err)
		}
		if parsed < 0 {
			return fmt.Errorf("parse config: %s must not be negative", d.name)
		}
		*d.dest = parsed
	}
	return nil
}

// applyEnvOverrides replaces values with SERIESNET_* environment variables
// when set. Invalid values fail the load.
func applyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("SERIESNET_API_URL")); v != "" {
		cfg.APIURL = v
		if strings.TrimSpace(os.Getenv("SERIESNET_ASSET_URL")) == "" {
			cfg.AssetURL = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("SERIESNET_ASSET_URL")); v != "" {
		cfg.AssetURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERIESNET_STALE_TIME")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SERIESNET_STALE_TIME %q: %w", v, err)
		}
		cfg.StaleTime = d
	}
	if v := strings.TrimSpace(os.Getenv("SERIESNET_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SERIESNET_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
