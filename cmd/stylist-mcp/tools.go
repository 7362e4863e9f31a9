package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/fpang/gemini-stylist/internal/auth"
	"github.com/fpang/gemini-stylist/internal/bundle"
	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

// toolset backs the MCP tools. Each call gets its own Controller so
// concurrent calls never share a source image.
type toolset struct {
	gen       stylist.Generator
	limiter   *rate.Limiter
	maxUpload int64
}

type listStylesInput struct{}

type listStylesOutput struct {
	Styles []stylist.StyleDefinition `json:"styles"`
}

type stylizeInput struct {
	Path      string   `json:"path" jsonschema:"absolute path of the source photo"`
	Styles    []string `json:"styles,omitempty" jsonschema:"style names to generate; all presets when empty"`
	OutputDir string   `json:"output_dir,omitempty" jsonschema:"directory to save results into; nothing is saved when empty"`
}

type customEditInput struct {
	Path        string `json:"path" jsonschema:"absolute path of the source photo"`
	Instruction string `json:"instruction" jsonschema:"what to change in the photo"`
	OutputDir   string `json:"output_dir,omitempty" jsonschema:"directory to save the result into; nothing is saved when empty"`
}

// toolResult summarizes one generated image.
type toolResult struct {
	Label string `json:"label"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
	Saved string `json:"saved,omitempty"`
}

type generateOutput struct {
	Results []toolResult `json:"results"`
}

func (ts *toolset) listStyles(ctx context.Context, req *mcp.CallToolRequest, in listStylesInput) (*mcp.CallToolResult, listStylesOutput, error) {
	return nil, listStylesOutput{Styles: stylist.Styles()}, nil
}

func (ts *toolset) stylizeImage(ctx context.Context, req *mcp.CallToolRequest, in stylizeInput) (*mcp.CallToolResult, generateOutput, error) {
	styles, err := stylist.SelectStyles(in.Styles)
	if err != nil {
		return nil, generateOutput{}, err
	}
	ctrl, err := ts.controllerFor(in.Path)
	if err != nil {
		return nil, generateOutput{}, err
	}

	outcomes, err := ctrl.RunBatch(ctx, styles)
	if err != nil {
		return nil, generateOutput{}, err
	}

	var (
		out     generateOutput
		content []mcp.Content
	)
	for _, o := range outcomes {
		tr := toolResult{Label: o.Label, State: string(stylist.StateSucceeded)}
		if o.Err != nil {
			tr.State = string(stylist.StateFailed)
			tr.Error = auth.FailureClass(o.Err)
			out.Results = append(out.Results, tr)
			continue
		}
		res, ok := ctrl.Result(o.ID)
		if !ok {
			continue
		}
		if tr.Saved, err = save(in.OutputDir, res); err != nil {
			return nil, generateOutput{}, err
		}
		out.Results = append(out.Results, tr)
		content = append(content, imageContent(res)...)
	}

	content = append(content, &mcp.TextContent{Text: summarize(out.Results)})
	return &mcp.CallToolResult{Content: content, IsError: len(content) == 1}, out, nil
}

func (ts *toolset) customEdit(ctx context.Context, req *mcp.CallToolRequest, in customEditInput) (*mcp.CallToolResult, generateOutput, error) {
	if strings.TrimSpace(in.Instruction) == "" {
		return nil, generateOutput{}, stylist.ErrEmptyInstruction
	}
	ctrl, err := ts.controllerFor(in.Path)
	if err != nil {
		return nil, generateOutput{}, err
	}

	res, err := ctrl.RunSingle(ctx, in.Instruction)
	if err != nil {
		out := generateOutput{Results: []toolResult{{
			Label: stylist.CustomEditLabel,
			State: string(stylist.StateFailed),
			Error: auth.FailureClass(err),
		}}}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: stylist.CustomEditErrorMessage}},
			IsError: true,
		}, out, nil
	}

	saved, err := save(in.OutputDir, res)
	if err != nil {
		return nil, generateOutput{}, err
	}
	out := generateOutput{Results: []toolResult{{Label: res.Label, State: string(res.State), Saved: saved}}}
	content := append(imageContent(res), &mcp.TextContent{Text: summarize(out.Results)})
	return &mcp.CallToolResult{Content: content}, out, nil
}

// controllerFor loads the photo at path into a fresh Controller.
func (ts *toolset) controllerFor(path string) (*stylist.Controller, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	up, err := filehandler.LoadFile(path, ts.maxUpload)
	if err != nil {
		return nil, err
	}
	ctrl := stylist.NewController(ts.gen, stylist.Options{Limiter: ts.limiter, Classify: auth.FailureClass})
	ctrl.SetImage(stylist.NewSourceImage(up.Data, up.MIMEType, up.Filename))
	return ctrl, nil
}

func imageContent(res stylist.GenerationResult) []mcp.Content {
	if res.Output == nil {
		return nil
	}
	mimeType := res.Output.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return []mcp.Content{&mcp.ImageContent{Data: res.Output.Data, MIMEType: mimeType}}
}

// save writes res into dir when dir is set and returns the file path.
func save(dir string, res stylist.GenerationResult) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, res.ID+"-"+bundle.FileName(res.Label, filehandler.ExtensionFor(res.Output.MIMEType)))
	if err := os.WriteFile(path, res.Output.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Str("label", res.Label).Msg("Result saved")
	return path, nil
}

func summarize(results []toolResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s: %s", r.Label, r.State)
		if r.Error != "" {
			fmt.Fprintf(&b, " (%s)", r.Error)
		}
		if r.Saved != "" {
			fmt.Fprintf(&b, " -> %s", r.Saved)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}
