package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Storage StorageConfig `yaml:"storage"`
	Network NetworkConfig `yaml:"network"`

	// Timezone the schedule feed's times are written in, like
	// "America/New_York".
	Timezone string `yaml:"timezone"`
}

type SourcesConfig struct {
	LineupURL   string `yaml:"lineup_url"`
	ScheduleURL string `yaml:"schedule_url"`

	RefreshIntervalMinutes int `yaml:"refresh_interval_minutes"`
}

type StorageConfig struct {
	DataDir          string `yaml:"data_dir"`
	ImageMaxAgeHours int    `yaml:"image_max_age_hours"`
}

type NetworkConfig struct {
	// ProbeURL defaults to the lineup url, after any override from the
	// preferences.
	ProbeURL               string `yaml:"probe_url"`
	ReachabilityTTLSeconds int    `yaml:"reachability_ttl_seconds"`
	ProbeTimeoutSeconds    int    `yaml:"probe_timeout_seconds"`
	HTTPTimeoutSeconds     int    `yaml:"http_timeout_seconds"`
}

// Load reads the config file at path and fills in defaults. A missing file
// is not an error: every setting has a default except the source URLs.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	} else if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Sources.RefreshIntervalMinutes == 0 {
		cfg.Sources.RefreshIntervalMinutes = 60
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.ImageMaxAgeHours == 0 {
		cfg.Storage.ImageMaxAgeHours = 24 * 7
	}
	if cfg.Network.ReachabilityTTLSeconds == 0 {
		cfg.Network.ReachabilityTTLSeconds = 60
	}
	if cfg.Network.ProbeTimeoutSeconds == 0 {
		cfg.Network.ProbeTimeoutSeconds = 5
	}
	if cfg.Network.HTTPTimeoutSeconds == 0 {
		cfg.Network.HTTPTimeoutSeconds = 30
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location is the time zone schedule times are read in.
func (cfg *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad timezone '%s': %w", cfg.Timezone, err)
	}
	return loc, nil
}

func (cfg *Config) RefreshInterval() time.Duration {
	return time.Duration(cfg.Sources.RefreshIntervalMinutes) * time.Minute
}

func (cfg *Config) ImageMaxAge() time.Duration {
	return time.Duration(cfg.Storage.ImageMaxAgeHours) * time.Hour
}

func (cfg *Config) ReachabilityTTL() time.Duration {
	return time.Duration(cfg.Network.ReachabilityTTLSeconds) * time.Second
}

func (cfg *Config) ProbeTimeout() time.Duration {
	return time.Duration(cfg.Network.ProbeTimeoutSeconds) * time.Second
}

func (cfg *Config) HTTPTimeout() time.Duration {
	return time.Duration(cfg.Network.HTTPTimeoutSeconds) * time.Second
}

// Files inside the data dir.
func (cfg *Config) DBPath() string    { return filepath.Join(cfg.Storage.DataDir, "bandcruise.db") }
func (cfg *Config) PrefsPath() string { return filepath.Join(cfg.Storage.DataDir, "preferences.yaml") }
func (cfg *Config) ImageListPath() string {
	return filepath.Join(cfg.Storage.DataDir, "combinedImageList.json")
}
func (cfg *Config) ImageCacheDir() string { return filepath.Join(cfg.Storage.DataDir, "images") }
func (cfg *Config) NextRefreshPath() string {
	return filepath.Join(cfg.Storage.DataDir, "next-refresh")
}
