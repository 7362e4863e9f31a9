package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/gemini-stylist/internal/boot"
	"github.com/fpang/gemini-stylist/internal/cli"
	"github.com/fpang/gemini-stylist/internal/config"
)

var (
	flags       boot.Flags
	helpEnvFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "stylist-cli",
	Short: "Restyle a photo with Gemini from the command line",
	Long: `Stylist CLI sends one photo to Gemini and saves the restyled images.

Examples:
  stylist-cli styles
  stylist-cli batch --image portrait.jpg --out ./styled
  stylist-cli batch -i portrait.jpg -s "Oil Painting" -s "3D Render"
  stylist-cli edit -i portrait.jpg -p "Put a party hat on the dog"
  stylist-cli batch   # opens a file picker`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if helpEnvFlag {
			fmt.Fprintln(cmd.OutOrStdout(), config.Describe())
			os.Exit(0)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.Model, "model", "m", "", "Gemini image model (default from GEMINI_IMAGE_MODEL)")
	pf.StringVar(&flags.Transport, "transport", "", "Gemini transport: sdk or rest")
	pf.BoolVar(&flags.SkipValidation, "skip-validation", false, "Skip API key validation")
	pf.StringVar(&flags.EnvFile, "env-file", "", "Load settings from this .env file")
	pf.BoolVar(&helpEnvFlag, "help-env", false, "List supported environment variables and exit")

	rootCmd.AddCommand(stylesCmd, batchCmd, editCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads settings from the environment and flags and
// initializes logging.
func loadConfig() (*config.Config, error) {
	return boot.LoadConfig(flags, "stylist-cli", nil, os.Stderr)
}

// start builds the generation runtime.
func start(ctx context.Context, cfg *config.Config) (*boot.Runtime, error) {
	rt, err := boot.Start(ctx, cfg)
	if err != nil {
		return nil, errors.New(cli.ValidationHint(err))
	}
	rt.StartupLog("stylist-cli").Log()
	return rt, nil
}

func printf(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		log.Debug().Err(err).Msg("Failed to write output")
	}
}
