// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// Config holds all configuration shared by the stylist binaries.
type Config struct {
	Model          string        `env:"GEMINI_IMAGE_MODEL" env-default:"gemini-2.5-flash-image" env-description:"Gemini image model"`
	Transport      string        `env:"GEMINI_TRANSPORT" env-default:"sdk" env-description:"Gemini transport: sdk or rest"`
	Timeout        time.Duration `env:"GEMINI_TIMEOUT" env-default:"120s" env-description:"HTTP timeout per Gemini request"`
	BaseURL        string        `env:"GEMINI_BASE_URL" env-description:"Override for the REST endpoint"`
	SSMAPIKeyParam string        `env:"SSM_API_KEY_PARAM" env-description:"SSM parameter holding the Gemini API key"`

	Port              int     `env:"STYLIST_PORT" env-default:"8080" env-description:"Web server port"`
	LogLevel          string  `env:"STYLIST_LOG_LEVEL" env-default:"info" env-description:"trace, debug, info, warn or error"`
	MaxUploadBytes    int64   `env:"STYLIST_MAX_UPLOAD_BYTES" env-default:"5242880" env-description:"Largest accepted source image"`
	RequestsPerSecond float64 `env:"STYLIST_REQUESTS_PER_SECOND" env-default:"0" env-description:"Pace Gemini calls; 0 disables pacing"`
	Metrics           bool    `env:"STYLIST_METRICS" env-default:"false" env-description:"Emit EMF metrics to stdout"`
	SkipValidation    bool    `env:"STYLIST_SKIP_VALIDATION" env-default:"false" env-description:"Skip API key validation at startup"`

	ExportBucket string        `env:"STYLIST_EXPORT_BUCKET" env-description:"S3 bucket for result export; empty disables export"`
	ExportPrefix string        `env:"STYLIST_EXPORT_PREFIX" env-default:"stylized" env-description:"Key prefix for exported results"`
	ThumbnailTTL time.Duration `env:"STYLIST_THUMBNAIL_TTL" env-default:"30m" env-description:"Lifetime of cached thumbnails"`
}

// DefaultEnvFile is read by Load when no file is named. It is optional.
const DefaultEnvFile = ".env"

// Load reads the named .env files, or DefaultEnvFile when none are named,
// and then decodes the environment into a validated Config. A named file
// that does not exist is an error. Variables already set in the process
// environment take precedence over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Transport {
	case "sdk", "rest":
	default:
		return fmt.Errorf("GEMINI_TRANSPORT must be sdk or rest, got %q", c.Transport)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("STYLIST_PORT out of range: %d", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("STYLIST_MAX_UPLOAD_BYTES must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("STYLIST_REQUESTS_PER_SECOND must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}
	return nil
}

// Limiter returns the request pacing limiter, or nil when pacing is off.
func (c *Config) Limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
}

// ExportEnabled reports whether S3 export is configured.
func (c *Config) ExportEnabled() bool {
	return c.ExportBucket != ""
}

// Describe lists every supported environment variable with its
// description, for --help-env output.
func Describe() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}
