// Command stylist-mcp exposes the stylist over the Model Context Protocol
// on stdio, so agents can restyle local photos.
package main

import (
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/gemini-stylist/internal/boot"
	"github.com/fpang/gemini-stylist/internal/logging"
)

var flags boot.Flags

var rootCmd = &cobra.Command{
	Use:   "stylist-mcp",
	Short: "MCP server for restyling photos with Gemini",
	Long: `Stylist MCP speaks the Model Context Protocol over stdin/stdout and offers
three tools: list_styles, stylize_image and custom_edit.

Logs and metrics go to stderr; stdout carries only protocol messages.`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&flags.Model, "model", "m", "", "Gemini image model (default from GEMINI_IMAGE_MODEL)")
	rootCmd.Flags().StringVar(&flags.Transport, "transport", "", "Gemini transport: sdk or rest")
	rootCmd.Flags().BoolVar(&flags.SkipValidation, "skip-validation", false, "Skip API key validation")
	rootCmd.Flags().StringVar(&flags.EnvFile, "env-file", "", "Load settings from this .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	cfg, err := boot.LoadConfig(flags, "stylist-mcp", os.Stderr, os.Stderr)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := boot.Start(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return err
	}
	rt.StartupLog("stylist-mcp").Log()

	server := newMCPServer(&toolset{gen: rt.Generator, limiter: cfg.Limiter(), maxUpload: cfg.MaxUploadBytes})
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
		return err
	}
	return nil
}

func newMCPServer(ts *toolset) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gemini-stylist", Version: logging.Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_styles",
		Description: "List the preset artistic styles and the instruction each one sends to the image model.",
	}, ts.listStyles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stylize_image",
		Description: "Restyle a local PNG, JPEG or WebP photo in one or more preset styles. Returns the generated images.",
	}, ts.stylizeImage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "custom_edit",
		Description: "Apply a free-form edit instruction to a local photo. Returns the edited image.",
	}, ts.customEdit)

	return server
}
