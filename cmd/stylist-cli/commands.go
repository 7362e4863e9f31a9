package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/gemini-stylist/internal/bundle"
	"github.com/fpang/gemini-stylist/internal/cli"
	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

var (
	imageFlag  string
	outFlag    string
	styleFlags []string
	promptFlag string
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the preset styles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listStyles(cmd.OutOrStdout())
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate the photo in several preset styles at once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		styles, err := stylist.SelectStyles(styleFlags)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		up, err := resolveImage(imageFlag, cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rt, err := start(ctx, cfg)
		if err != nil {
			return err
		}
		rt.Controller.SetImage(stylist.NewSourceImage(up.Data, up.MIMEType, up.Filename))
		return runBatch(ctx, rt.Controller, styles, outFlag, cmd.OutOrStdout())
	},
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Apply a free-form edit instruction to the photo",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		up, err := resolveImage(imageFlag, cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		instruction := promptFlag
		if strings.TrimSpace(instruction) == "" {
			instruction = cli.PromptLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Edit instruction", "")
		}
		if strings.TrimSpace(instruction) == "" {
			return stylist.ErrEmptyInstruction
		}
		ctx := cmd.Context()
		rt, err := start(ctx, cfg)
		if err != nil {
			return err
		}
		rt.Controller.SetImage(stylist.NewSourceImage(up.Data, up.MIMEType, up.Filename))
		return runEdit(ctx, rt.Controller, instruction, outFlag, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{batchCmd, editCmd} {
		c.Flags().StringVarP(&imageFlag, "image", "i", "", "Source photo (PNG, JPEG or WebP); opens a file picker when omitted")
		c.Flags().StringVarP(&outFlag, "out", "o", ".", "Directory to write results into")
	}
	batchCmd.Flags().StringArrayVarP(&styleFlags, "style", "s", nil, "Style to generate (repeatable; default all)")
	editCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Edit instruction; asked for interactively when omitted")
}

func listStyles(w io.Writer) {
	for _, s := range stylist.Styles() {
		printf(w, "%-14s %s\n", s.Name, s.Prompt)
	}
}

// resolveImage loads the photo at path, or asks for one with a native
// file dialog when path is empty. Files larger than maxBytes are rejected.
func resolveImage(path string, maxBytes int64) (*filehandler.Upload, error) {
	if path == "" {
		picked, err := filehandler.PickImage("Select a photo to stylize")
		if err != nil {
			if errors.Is(err, filehandler.ErrPickCanceled) {
				return nil, errors.New("no image selected")
			}
			return nil, fmt.Errorf("file picker failed: %w", err)
		}
		path = picked
	}
	up, err := filehandler.LoadFile(path, maxBytes)
	if err != nil {
		return nil, err
	}
	if up.Metadata != nil {
		log.Info().Str("file", up.Filename).Str("exif", up.Metadata.Summary()).Msg("Source image loaded")
	}
	return up, nil
}

func runBatch(ctx context.Context, ctrl *stylist.Controller, styles []stylist.StyleDefinition, outDir string, w io.Writer) error {
	printf(w, "Generating %d styles...\n", len(styles))
	start := time.Now()

	progressCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reportProgress(progressCtx, ctrl, w)
	}()

	outcomes, err := ctrl.RunBatch(ctx, styles)
	stop()
	<-done
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		res, ok := ctrl.Result(o.ID)
		if !ok {
			continue
		}
		path, err := writeResult(outDir, res)
		if err != nil {
			return err
		}
		printf(w, "  saved %s (%s)\n", path, cli.FormatBytes(len(res.Output.Data)))
	}
	printf(w, "Finished in %s\n", cli.FormatDurationShort(time.Since(start)))

	if failed == len(outcomes) {
		return fmt.Errorf("all %d styles failed", failed)
	}
	if failed > 0 {
		printf(w, "%d of %d styles failed\n", failed, len(outcomes))
	}
	return nil
}

func runEdit(ctx context.Context, ctrl *stylist.Controller, instruction, outDir string, w io.Writer) error {
	printf(w, "Applying edit...\n")
	res, err := ctrl.RunSingle(ctx, instruction)
	if err != nil {
		return err
	}
	path, err := writeResult(outDir, res)
	if err != nil {
		return err
	}
	printf(w, "  saved %s\n", path)
	return nil
}

// reportProgress prints each result once as it settles, until ctx ends.
func reportProgress(ctx context.Context, ctrl *stylist.Controller, w io.Writer) {
	reported := make(map[string]bool)
	var version uint64
	for {
		// One more snapshot is taken after cancellation so the final
		// settlements are not missed.
		last := ctx.Err() != nil
		st := ctrl.WaitForChange(ctx, version)
		version = st.Version
		for _, r := range st.Results {
			if r.Loading() || reported[r.ID] {
				continue
			}
			reported[r.ID] = true
			mark := "done"
			if r.State == stylist.StateFailed {
				mark = "FAILED"
			}
			printf(w, "  %-6s %s\n", mark, r.Label)
		}
		if last {
			return
		}
	}
}

// writeResult saves a succeeded result as stylized-<label>.<ext> in dir,
// adding a numeric suffix rather than overwriting an existing file.
func writeResult(dir string, r stylist.GenerationResult) (string, error) {
	if r.State != stylist.StateSucceeded || r.Output == nil {
		return "", fmt.Errorf("result %s has no image", r.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := filehandler.ExtensionFor(r.Output.MIMEType)
	base := strings.TrimSuffix(bundle.FileName(r.Label, ext), ext)
	for n := 1; ; n++ {
		name := base + ext
		if n > 1 {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(r.Output.Data); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
}
