// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds runtime configuration. Provider credentials are optional at
// startup; clients without a key fail their calls with domain.ErrNotConfigured.
type Config struct {
	Port        int    `yaml:"port" validate:"gte=1,lte=65535"`
	DatabaseURL string `yaml:"database_url"`
	TimeZone    string `yaml:"time_zone" validate:"required"`

	GraphHopperAPIKey  string `yaml:"-"`
	GraphHopperBaseURL string `yaml:"graphhopper_base_url" validate:"required,url"`
	ResRobotAccessID   string `yaml:"-"`
	ResRobotBaseURL    string `yaml:"resrobot_base_url" validate:"required,url"`

	HTTPTimeout         time.Duration `yaml:"http_timeout" validate:"gt=0"`
	CarCacheTTL         time.Duration `yaml:"car_cache_ttl" validate:"gt=0"`
	TransitCacheTTL     time.Duration `yaml:"transit_cache_ttl" validate:"gt=0"`
	CacheSweepInterval  time.Duration `yaml:"cache_sweep_interval" validate:"gt=0"`
	DepartBucketMinutes int           `yaml:"depart_bucket_minutes" validate:"gte=1,lte=60"`
	BatchConcurrency    int           `yaml:"batch_concurrency" validate:"gte=1,lte=32"`

	Location *time.Location `yaml:"-" validate:"-"`
}

func defaults() *Config {
	return &Config{
		Port:                8080,
		TimeZone:            "Europe/Stockholm",
		GraphHopperBaseURL:  "https://graphhopper.com/api/1",
		ResRobotBaseURL:     "https://api.resrobot.se/v2.1",
		HTTPTimeout:         10 * time.Second,
		CarCacheTTL:         60 * time.Minute,
		TransitCacheTTL:     5 * time.Minute,
		CacheSweepInterval:  30 * time.Second,
		DepartBucketMinutes: 5,
		BatchConcurrency:    4,
	}
}

// Load reads .env (if present), an optional YAML overlay named by
// TRAVEL_CONFIG_FILE, then environment variables, and validates the result.
// Environment variables win over the YAML file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("TRAVEL_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Field: "TRAVEL_CONFIG_FILE", Message: err.Error()}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &ConfigError{Field: "TRAVEL_CONFIG_FILE", Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.TimeZone = getEnv("TZ", c.TimeZone)

	c.GraphHopperAPIKey = strings.TrimSpace(os.Getenv("GRAPHHOPPER_API_KEY"))
	c.GraphHopperBaseURL = trimBase(getEnv("GRAPHHOPPER_BASE_URL", c.GraphHopperBaseURL))
	c.ResRobotAccessID = strings.TrimSpace(os.Getenv("TRAFIKLAB_RESROBOT_ACCESS_ID"))
	c.ResRobotBaseURL = trimBase(getEnv("RESROBOT_BASE_URL", c.ResRobotBaseURL))

	var err error
	if c.Port, err = intEnv("PORT", c.Port); err != nil {
		return err
	}
	if c.DepartBucketMinutes, err = intEnv("DEPART_BUCKET_MINUTES", c.DepartBucketMinutes); err != nil {
		return err
	}
	if c.BatchConcurrency, err = intEnv("BATCH_CONCURRENCY", c.BatchConcurrency); err != nil {
		return err
	}
	if c.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.CarCacheTTL, err = durationEnv("CAR_CACHE_TTL", c.CarCacheTTL); err != nil {
		return err
	}
	if c.TransitCacheTTL, err = durationEnv("TRANSIT_CACHE_TTL", c.TransitCacheTTL); err != nil {
		return err
	}
	if c.CacheSweepInterval, err = durationEnv("CACHE_SWEEP_INTERVAL", c.CacheSweepInterval); err != nil {
		return err
	}
	return nil
}

// Validate checks field constraints and resolves the time zone.
func (c *Config) Validate() error {
	var errs []error

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, &ConfigError{Field: fe.Field(), Message: fmt.Sprintf("failed %q constraint", fe.Tag())})
			}
		} else {
			errs = append(errs, err)
		}
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		errs = append(errs, &ConfigError{Field: "TZ", Message: err.Error()})
	} else {
		c.Location = loc
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a valid integer"}
	}
	return n, nil
}

// durationEnv accepts Go duration strings like "5m" or "90s".
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration like 5m"}
	}
	return d, nil
}

func trimBase(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
