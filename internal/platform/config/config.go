// Package config loads mileage tracker settings from an optional YAML file and
// the environment. Environment variables override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
)

const (
	ResolverGoogle = "google"
	ResolverStatic = "static"

	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
)

// Config is the full runtime configuration.
type Config struct {
	// OldAddress is the origin for trips dated before MovingDate.
	OldAddress string `yaml:"old_address"`
	// NewAddress is the origin for trips on or after MovingDate.
	NewAddress string `yaml:"new_address"`
	// MovingDate is the home-location cutoff (YYYY-MM-DD). Empty means every
	// trip starts at NewAddress.
	MovingDate string `yaml:"moving_date"`
	// Timezone decides what "today" is for trips submitted without a date.
	Timezone string `yaml:"timezone"`

	Resolver ResolverConfig `yaml:"resolver"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

type ResolverConfig struct {
	Kind         string        `yaml:"kind"`
	GoogleAPIKey string        `yaml:"google_api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	// StaticMiles is the one-way distance returned for every destination by
	// the static resolver.
	StaticMiles float64 `yaml:"static_miles"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Timezone: "Local",
		Resolver: ResolverConfig{
			Kind:    ResolverGoogle,
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			DataDir: "data",
		},
		HTTP: HTTPConfig{Port: "8080"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// LoadFromEnv reads the file named by MILEAGE_CONFIG (if any), then applies
// environment overrides.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv("MILEAGE_CONFIG"), os.LookupEnv)
}

// Load builds a Config from defaults, the YAML file at path (skipped when path
// is empty) and lookup, in that order, and validates the result.
func Load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("OLD_ADDRESS", &c.OldAddress)
	str("NEW_ADDRESS", &c.NewAddress)
	str("MOVING_DATE", &c.MovingDate)
	str("MILEAGE_TIMEZONE", &c.Timezone)
	str("RESOLVER", &c.Resolver.Kind)
	str("GOOGLE_MAPS_API_KEY", &c.Resolver.GoogleAPIKey)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("DATA_DIR", &c.Storage.DataDir)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("PORT", &c.HTTP.Port)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("RESOLVER_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RESOLVER_TIMEOUT must be a duration (e.g. 10s): %w", err)
		}
		c.Resolver.Timeout = d
	}
	if v, ok := lookup("STATIC_MILES"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STATIC_MILES must be a number: %w", err)
		}
		c.Resolver.StaticMiles = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.OldAddress = strings.TrimSpace(c.OldAddress)
	c.NewAddress = strings.TrimSpace(c.NewAddress)
	c.MovingDate = strings.TrimSpace(c.MovingDate)
	c.Resolver.Kind = strings.ToLower(strings.TrimSpace(c.Resolver.Kind))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Resolver.Timeout <= 0 {
		c.Resolver.Timeout = 10 * time.Second
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.Backend == BackendSQLite && c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = filepath.Join(c.Storage.DataDir, "mileage.db")
	}
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
}

func (c *Config) validate() error {
	var errs []string

	if c.NewAddress == "" {
		errs = append(errs, "NEW_ADDRESS is required")
	}
	if c.MovingDate != "" {
		if _, err := domain.ParseDate(c.MovingDate); err != nil {
			errs = append(errs, "MOVING_DATE must be YYYY-MM-DD")
		}
		if c.OldAddress == "" {
			errs = append(errs, "OLD_ADDRESS is required when MOVING_DATE is set")
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("MILEAGE_TIMEZONE %q is not a known time zone", c.Timezone))
	}

	switch c.Resolver.Kind {
	case ResolverGoogle:
		if c.Resolver.GoogleAPIKey == "" {
			errs = append(errs, "GOOGLE_MAPS_API_KEY is required when RESOLVER=google (use RESOLVER=static for offline use)")
		}
	case ResolverStatic:
		if c.Resolver.StaticMiles < 0 {
			errs = append(errs, "STATIC_MILES must be >= 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("RESOLVER must be google or static, got %q", c.Resolver.Kind))
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendPostgres, BackendMySQL:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, fmt.Sprintf("DATABASE_URL is required when STORAGE_BACKEND=%s", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be one of memory, file, postgres, sqlite, mysql; got %q", c.Storage.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HomeRule returns the home-location rule for trip origins.
func (c Config) HomeRule() domain.HomeRule {
	rule := domain.HomeRule{OldAddress: c.OldAddress, NewAddress: c.NewAddress}
	if d, err := domain.ParseDate(c.MovingDate); err == nil {
		rule.Cutoff = d
	}
	return rule
}

// Location returns the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.New("unknown time zone " + strconv.Quote(c.Timezone))
	}
	return loc, nil
}
