// Package boot holds the startup sequence shared by the stylist binaries:
// configuration, API key lookup, Gemini client, key validation and the
// generation controller.
package boot

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/gemini-stylist/internal/auth"
	"github.com/fpang/gemini-stylist/internal/config"
	"github.com/fpang/gemini-stylist/internal/export"
	"github.com/fpang/gemini-stylist/internal/gemini"
	"github.com/fpang/gemini-stylist/internal/logging"
	"github.com/fpang/gemini-stylist/internal/metrics"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

// Flags are command-line overrides applied on top of the environment.
// Zero values leave the configured setting alone.
type Flags struct {
	Model          string
	Transport      string
	Port           int
	SkipValidation bool
	EnvFile        string
}

// Runtime is everything a binary needs to serve generation requests.
type Runtime struct {
	Config     *config.Config
	Client     *genai.Client
	Generator  stylist.Generator
	Controller *stylist.Controller
	started    time.Time
}

// Apply overlays non-zero flags onto cfg.
func (f Flags) Apply(cfg *config.Config) {
	if f.Model != "" {
		cfg.Model = f.Model
	}
	if f.Transport != "" {
		cfg.Transport = f.Transport
	}
	if f.Port != 0 {
		cfg.Port = f.Port
	}
	if f.SkipValidation {
		cfg.SkipValidation = true
	}
}

// LoadConfig reads configuration, applies flags and initializes logging.
// metricsOut receives EMF lines when STYLIST_METRICS is on.
func LoadConfig(f Flags, service string, logOut, metricsOut io.Writer) (*config.Config, error) {
	var files []string
	if f.EnvFile != "" {
		files = append(files, f.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	f.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logOut != nil {
		logging.InitWithWriter(cfg.LogLevel, logOut)
	} else {
		logging.Init(cfg.LogLevel)
	}
	if cfg.Metrics && metricsOut != nil {
		metrics.Enable(metricsOut, service)
	}
	return cfg, nil
}

// Start resolves the API key, builds the Gemini client and generator,
// optionally validates the key, and returns a ready Controller.
func Start(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	started := time.Now()

	apiKey, err := auth.GetAPIKey(ctx, cfg.SSMAPIKeyParam)
	if err != nil {
		return nil, err
	}

	client, err := gemini.NewClient(ctx, apiKey, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.SkipValidation {
		log.Warn().Msg("Skipping API key validation")
	} else if err := auth.ValidateAPIKey(ctx, client, gemini.ValidationModel); err != nil {
		return nil, err
	}

	gen, err := gemini.NewGenerator(client, gemini.GeneratorConfig{
		APIKey:    apiKey,
		Model:     cfg.Model,
		Transport: cfg.Transport,
		Timeout:   cfg.Timeout,
		BaseURL:   cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	ctrl := stylist.NewController(gen, stylist.Options{
		Limiter:  cfg.Limiter(),
		Classify: auth.FailureClass,
	})

	return &Runtime{
		Config:     cfg,
		Client:     client,
		Generator:  gen,
		Controller: ctrl,
		started:    started,
	}, nil
}

// NewExporter returns an S3 exporter when a bucket is configured, or nil.
func NewExporter(ctx context.Context, cfg *config.Config) (*export.Exporter, error) {
	if !cfg.ExportEnabled() {
		return nil, nil
	}
	return export.New(ctx, cfg.ExportBucket, cfg.ExportPrefix)
}

// StartupLog returns a startup logger pre-filled with the shared settings.
func (rt *Runtime) StartupLog(name string) *logging.StartupLogger {
	cfg := rt.Config
	return logging.NewStartupLogger(name).
		Resource("model", cfg.Model).
		Config("transport", cfg.Transport).
		Config("timeout", cfg.Timeout.String()).
		Feature("rateLimit", cfg.RequestsPerSecond > 0).
		Feature("metrics", cfg.Metrics).
		Feature("export", cfg.ExportEnabled()).
		Feature("keyValidation", !cfg.SkipValidation).
		InitDuration(time.Since(rt.started))
}
