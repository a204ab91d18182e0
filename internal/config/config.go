// Package config loads chatcore settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full settings tree.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Responder ResponderConfig `toml:"responder"`
	Log       LogConfig       `toml:"log"`
	Timeline  TimelineConfig  `toml:"timeline"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

type ResponderConfig struct {
	URL               string `toml:"url"`
	APIKey            string `toml:"api_key"`
	TimeoutSecs       int    `toml:"timeout_secs"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type LogConfig struct {
	// Mode is "dev" or "prod".
	Mode string `toml:"mode"`
}

type TimelineConfig struct {
	// OrphanPolicy is "drop" or "resurrect".
	OrphanPolicy string `toml:"orphan_policy"`
	WriteQueue   int    `toml:"write_queue"`
}

// Dir returns ~/.chatcore.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".chatcore"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the built-in settings.
func Default() *Config {
	db := "chatcore.db"
	if dir, err := Dir(); err == nil {
		db = filepath.Join(dir, "chatcore.db")
	}
	return &Config{
		Storage: StorageConfig{DBPath: db},
		Responder: ResponderConfig{
			URL:               "http://localhost:8080/api/chat",
			TimeoutSecs:       60,
			RequestsPerMinute: 30,
		},
		Log:      LogConfig{Mode: "dev"},
		Timeline: TimelineConfig{OrphanPolicy: "drop", WriteQueue: 64},
	}
}

// Load reads path over the defaults, then applies environment overrides and
// validates. An empty path means Path(); a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides replaces settings with any CHATCORE_* variables set.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHATCORE_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("CHATCORE_RESPONDER_URL"); v != "" {
		c.Responder.URL = v
	}
	if v := os.Getenv("CHATCORE_API_KEY"); v != "" {
		c.Responder.APIKey = v
	}
	if v := os.Getenv("CHATCORE_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("CHATCORE_ORPHAN_POLICY"); v != "" {
		c.Timeline.OrphanPolicy = v
	}
	if v := os.Getenv("CHATCORE_RESPONDER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Responder.TimeoutSecs = n
		}
	}
}

// ValidationError names one bad setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every bad setting found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Storage.DBPath) == "" {
		errs = append(errs, ValidationError{"storage.db_path", "must not be empty"})
	}
	if c.Responder.URL == "" {
		errs = append(errs, ValidationError{"responder.url", "must not be empty"})
	} else if !strings.HasPrefix(c.Responder.URL, "http://") && !strings.HasPrefix(c.Responder.URL, "https://") {
		errs = append(errs, ValidationError{"responder.url", fmt.Sprintf("unsupported scheme in %q", c.Responder.URL)})
	}
	if c.Responder.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"responder.timeout_secs", "must be positive"})
	}
	if c.Responder.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{"responder.requests_per_minute", "must not be negative"})
	}
	switch strings.ToLower(c.Log.Mode) {
	case "dev", "prod":
	default:
		errs = append(errs, ValidationError{"log.mode", fmt.Sprintf("invalid mode %q, must be dev or prod", c.Log.Mode)})
	}
	switch strings.ToLower(c.Timeline.OrphanPolicy) {
	case "", "drop", "resurrect":
	default:
		errs = append(errs, ValidationError{"timeline.orphan_policy", fmt.Sprintf("invalid policy %q, must be drop or resurrect", c.Timeline.OrphanPolicy)})
	}
	if c.Timeline.WriteQueue < 0 {
		errs = append(errs, ValidationError{"timeline.write_queue", "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
