package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/gemini-stylist/internal/boot"
	"github.com/fpang/gemini-stylist/internal/config"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

var (
	flags       boot.Flags
	helpEnvFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "stylist-web",
	Short: "Web UI for restyling a photo with Gemini",
	Long: `Stylist Web starts a local web server where you upload one photo, then
generate it in several artistic styles at once or apply a free-form edit.

Examples:
  stylist-web
  stylist-web --port 9090
  stylist-web --transport rest --model gemini-3-pro-image-preview`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().IntVar(&flags.Port, "port", 0, "Port to listen on (default from STYLIST_PORT)")
	rootCmd.Flags().StringVarP(&flags.Model, "model", "m", "", "Gemini image model (default from GEMINI_IMAGE_MODEL)")
	rootCmd.Flags().StringVar(&flags.Transport, "transport", "", "Gemini transport: sdk or rest")
	rootCmd.Flags().BoolVar(&flags.SkipValidation, "skip-validation", false, "Skip API key validation at startup")
	rootCmd.Flags().StringVar(&flags.EnvFile, "env-file", "", "Load settings from this .env file")
	rootCmd.Flags().BoolVar(&helpEnvFlag, "help-env", false, "List supported environment variables and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	if helpEnvFlag {
		fmt.Fprintln(cmd.OutOrStdout(), config.Describe())
		return nil
	}

	cfg, err := boot.LoadConfig(flags, "stylist-web", nil, os.Stdout)
	if err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := boot.Start(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return err
	}

	opts := serverOptions{
		MaxUploadBytes: cfg.MaxUploadBytes,
		ThumbnailTTL:   cfg.ThumbnailTTL,
	}
	exporter, err := boot.NewExporter(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("S3 export unavailable")
	} else if exporter != nil {
		opts.Exporter = exporter
	}

	frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		return fmt.Errorf("failed to access embedded frontend: %w", err)
	}
	opts.Frontend = frontendSub

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     newServer(rt.Controller, opts).routes(),
		ReadTimeout: 30 * time.Second,
		// Long-polls hold a response for up to defaultPollWindow.
		WriteTimeout: defaultPollWindow + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	rt.StartupLog("stylist-web").
		Config("port", fmt.Sprint(cfg.Port)).
		Feature("s3Export", opts.Exporter != nil).
		Log()
	fmt.Printf("\n  Stylist Web UI: http://localhost:%d\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
